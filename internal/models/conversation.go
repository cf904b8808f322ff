// internal/models/conversation.go
package models

import "github.com/google/uuid"

// Conversation groups the message history for a lead. A lead has at most one
// active conversation at a time.
type Conversation struct {
	BaseModel
	LeadID uuid.UUID `json:"lead_id" gorm:"type:uuid;not null;index"`
	Active bool      `json:"active" gorm:"default:true;index"`

	Lead     *Lead     `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ConversationID"`
}

// Message is a single immutable turn in a conversation.
type Message struct {
	BaseModel
	ConversationID uuid.UUID   `json:"conversation_id" gorm:"type:uuid;not null;index"`
	Role           MessageRole `json:"role" gorm:"type:varchar(10);not null"`
	Content        string      `json:"content" gorm:"type:text;not null"`
	MediaURL       string      `json:"media_url,omitempty" gorm:"size:500"`
	MediaType      string      `json:"media_type,omitempty" gorm:"size:100"`
	ExternalMsgID  string      `json:"external_msg_id,omitempty" gorm:"size:100;index"`
}
