package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
)

// SendMessageRequest is an outbound text
type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4096"`
}

// ListConversationsRequest narrows conversation listings
type ListConversationsRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Search     string `form:"search"`
	UnreadOnly bool   `form:"unread"`
}

// ListMessagesRequest pages a conversation
type ListMessagesRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// IngestResult counts what happened to a webhook delivery
type IngestResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ConversationResponse is the API view of a conversation
type ConversationResponse struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      uuid.UUID  `json:"client_id"`
	Phone         string     `json:"phone"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastPreview   string     `json:"last_preview"`
	Unread        int        `json:"unread"`
}

// MessageResponse is the API view of a message
type MessageResponse struct {
	ID         uuid.UUID  `json:"id"`
	ExternalID string     `json:"external_id,omitempty"`
	Direction  string     `json:"direction"`
	Kind       string     `json:"kind"`
	Body       string     `json:"body"`
	MediaKey   string     `json:"media_key,omitempty"`
	MediaURL   string     `json:"media_url,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	SentAt     time.Time  `json:"sent_at"`
	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
}

// ToConversationResponse converts a domain conversation
func ToConversationResponse(c *crm.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            c.ID,
		ClientID:      c.ClientID,
		Phone:         c.Phone.String(),
		LastMessageAt: c.LastMessageAt,
		LastPreview:   c.LastPreview,
		Unread:        c.Unread,
	}
}

// ToMessageResponse converts a domain message
func ToMessageResponse(m *crm.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Direction:  string(m.Direction),
		Kind:       string(m.Kind),
		Body:       m.Body,
		MediaKey:   m.MediaKey,
		Status:     string(m.Status),
		Error:      m.Error,
		SentAt:     m.SentAt,
		CreatedBy:  m.CreatedBy,
	}
}
