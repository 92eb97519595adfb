package domain

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a notification row.
type Type string

const (
	TypeNewMessage Type = "NEW_MESSAGE"
	TypeTaskUpdate Type = "TASK_UPDATE"
	TypeSystem     Type = "SYSTEM"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case TypeNewMessage, TypeTaskUpdate, TypeSystem:
		return true
	}
	return false
}

func ParseTypeFromString(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return t, nil
}

// Notification is a single inbox row owned by one back-office user. Rows are
// created by server-side logic elsewhere in the platform; this service only
// reads them and flips the read flag. Creation order is the only meaningful
// ordering key.
type Notification struct {
	ID          string
	RecipientID string
	Type        Type
	ReferenceID *string // conversation id for NEW_MESSAGE rows, nil otherwise
	Title       string
	Message     string
	IsRead      bool
	CreatedAt   time.Time
}

// Ref returns the reference id or "" when the row carries none.
func (n Notification) Ref() string {
	if n.ReferenceID == nil {
		return ""
	}
	return *n.ReferenceID
}

// Groupable reports whether the row participates in conversation grouping.
func (n Notification) Groupable() bool {
	return n.Type == TypeNewMessage && n.Ref() != ""
}
