package repository

import (
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID          string      `gorm:"type:uuid;primaryKey"`
	RecipientID string      `gorm:"type:uuid;not null"`
	Type        domain.Type `gorm:"type:varchar(20);not null"`
	ReferenceID *string     `gorm:"type:uuid"`
	Title       string      `gorm:"type:varchar(255);not null"`
	Message     string      `gorm:"type:text;not null"`
	IsRead      bool        `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// ConversationModel is the persistence model for the conversations table.
// Participant display names are denormalized by the write side so the inbox
// resolves counterparts with one batched select.
type ConversationModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	AgentID    string `gorm:"type:uuid;not null"`
	AgentName  string `gorm:"type:varchar(255);not null"`
	ClientID   string `gorm:"type:uuid;not null"`
	ClientName string `gorm:"type:varchar(255);not null"`
	CreatedAt  time.Time
}

func (ConversationModel) TableName() string {
	return "conversations"
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:          m.ID,
		RecipientID: m.RecipientID,
		Type:        m.Type,
		ReferenceID: m.ReferenceID,
		Title:       m.Title,
		Message:     m.Message,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}

func conversationModelToDomain(m *ConversationModel) *domain.Conversation {
	if m == nil {
		return nil
	}

	return &domain.Conversation{
		ID:         m.ID,
		AgentID:    m.AgentID,
		AgentName:  m.AgentName,
		ClientID:   m.ClientID,
		ClientName: m.ClientName,
		CreatedAt:  m.CreatedAt,
	}
}
