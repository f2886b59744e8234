package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

// ConversationModel is the persistence model for WhatsApp threads
type ConversationModel struct {
	TenantAggregateModel
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Phone         string     `gorm:"type:varchar(15);not null;index"`
	LastMessageAt *time.Time `gorm:"index"`
	LastPreview   string     `gorm:"type:varchar(100)"`
	Unread        int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ConversationModel) TableName() string {
	return "conversations"
}

// ToDomain converts the persistence model to a domain Conversation
func (m *ConversationModel) ToDomain() *crm.Conversation {
	return &crm.Conversation{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ClientID:            m.ClientID,
		Phone:               valueobject.Phone(m.Phone),
		LastMessageAt:       m.LastMessageAt,
		LastPreview:         m.LastPreview,
		Unread:              m.Unread,
	}
}

// ConversationModelFromDomain creates a new persistence model from a domain Conversation
func ConversationModelFromDomain(c *crm.Conversation) *ConversationModel {
	m := &ConversationModel{
		ClientID:      c.ClientID,
		Phone:         c.Phone.String(),
		LastMessageAt: c.LastMessageAt,
		LastPreview:   c.LastPreview,
		Unread:        c.Unread,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// MessageModel is the persistence model for chat messages.
// ExternalID is NULL until WhatsApp assigns an id, so queued messages do not collide
// on the unique index.
type MessageModel struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID          `gorm:"type:uuid;not null;index;uniqueIndex:idx_message_tenant_external,priority:1"`
	ConversationID uuid.UUID          `gorm:"type:uuid;not null;index:idx_message_conversation_sent,priority:1"`
	ExternalID     *string            `gorm:"type:varchar(128);uniqueIndex:idx_message_tenant_external,priority:2"`
	Direction      crm.Direction      `gorm:"type:varchar(10);not null"`
	Kind           crm.MessageKind    `gorm:"type:varchar(20);not null"`
	Body           string             `gorm:"type:text"`
	MediaKey       string             `gorm:"type:varchar(500)"`
	Status         crm.DeliveryStatus `gorm:"type:varchar(20);not null"`
	Error          string             `gorm:"type:text"`
	SentAt         time.Time          `gorm:"not null;index:idx_message_conversation_sent,priority:2"`
	CreatedBy      *uuid.UUID         `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message
func (m *MessageModel) ToDomain() *crm.Message {
	msg := &crm.Message{
		ID:        m.ID,
		TenantID:  m.TenantID,
		ConvID:    m.ConversationID,
		Direction: m.Direction,
		Kind:      m.Kind,
		Body:      m.Body,
		MediaKey:  m.MediaKey,
		Status:    m.Status,
		Error:     m.Error,
		SentAt:    m.SentAt,
		CreatedBy: m.CreatedBy,
	}
	if m.ExternalID != nil {
		msg.ExternalID = *m.ExternalID
	}
	return msg
}

// MessageModelFromDomain creates a new persistence model from a domain Message
func MessageModelFromDomain(msg *crm.Message) *MessageModel {
	m := &MessageModel{
		ID:             msg.ID,
		TenantID:       msg.TenantID,
		ConversationID: msg.ConvID,
		Direction:      msg.Direction,
		Kind:           msg.Kind,
		Body:           msg.Body,
		MediaKey:       msg.MediaKey,
		Status:         msg.Status,
		Error:          msg.Error,
		SentAt:         msg.SentAt,
		CreatedBy:      msg.CreatedBy,
	}
	if msg.ExternalID != "" {
		ext := msg.ExternalID
		m.ExternalID = &ext
	}
	return m
}
