package domain

import "time"

// Conversation is the message thread between a client and the field agent
// handling their file. Participant display names are denormalized onto the row
// so enrichment needs a single batched lookup.
type Conversation struct {
	ID         string
	AgentID    string
	AgentName  string
	ClientID   string
	ClientName string
	CreatedAt  time.Time
}

// Counterpart returns the display name of the participant who is not userID.
func (c Conversation) Counterpart(userID string) string {
	if c.AgentID == userID {
		return c.ClientName
	}
	return c.AgentName
}
