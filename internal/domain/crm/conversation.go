package crm

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

const AggregateTypeConversation = "Conversation"

// Direction of a chat message
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageKind is the WhatsApp message type
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindAudio    MessageKind = "audio"
	KindDocument MessageKind = "document"
	KindLocation MessageKind = "location"
	KindOther    MessageKind = "other"
)

// DeliveryStatus tracks outbound messages
type DeliveryStatus string

const (
	StatusReceived DeliveryStatus = "received"
	StatusQueued   DeliveryStatus = "queued"
	StatusSent     DeliveryStatus = "sent"
	StatusFailed   DeliveryStatus = "failed"
)

// Message is one chat message
type Message struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ConvID     uuid.UUID
	ExternalID string // WhatsApp message id, unique per tenant
	Direction  Direction
	Kind       MessageKind
	Body       string
	MediaKey   string // object storage key of archived media
	Status     DeliveryStatus
	Error      string
	SentAt     time.Time
	CreatedBy  *uuid.UUID
}

// Conversation is the chat thread between the shop and one client
type Conversation struct {
	shared.TenantAggregateRoot
	ClientID      uuid.UUID
	Phone         valueobject.Phone
	LastMessageAt *time.Time
	LastPreview   string
	Unread        int
	// pending holds messages appended since load; repositories persist them on save
	pending []*Message
}

// NewConversation opens a thread with a client
func NewConversation(tenantID, clientID uuid.UUID, phone valueobject.Phone) *Conversation {
	return &Conversation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ClientID:            clientID,
		Phone:               phone,
	}
}

// ReceiveInput describes an inbound WhatsApp message
type ReceiveInput struct {
	ExternalID string
	Kind       MessageKind
	Body       string
	MediaKey   string
	SentAt     time.Time
}

// Receive appends an inbound message
func (c *Conversation) Receive(in ReceiveInput) (*Message, error) {
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Inbound messages need their WhatsApp id")
	}
	m := c.append(DirectionInbound, in.Kind, in.Body, in.SentAt)
	m.ExternalID = in.ExternalID
	m.MediaKey = in.MediaKey
	m.Status = StatusReceived
	c.Unread++

	c.AddDomainEvent(&MessageReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMessageReceived, AggregateTypeConversation, c.ID, c.TenantID),
		MessageID:       m.ID,
		ClientID:        c.ClientID,
		Kind:            m.Kind,
		Preview:         preview(m.Body),
		SentAt:          m.SentAt,
	})
	return m, nil
}

// Compose appends an outbound text message waiting to be sent
func (c *Conversation) Compose(body string, by *uuid.UUID) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Message body is required")
	}
	if len(body) > 4096 {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Message body cannot exceed 4096 characters")
	}
	m := c.append(DirectionOutbound, KindText, body, time.Now().UTC())
	m.Status = StatusQueued
	m.CreatedBy = by
	c.Unread = 0
	return m, nil
}

// MarkRead clears the unread counter
func (c *Conversation) MarkRead() {
	c.Unread = 0
	c.Touch()
}

// PendingMessages returns messages appended since the conversation was loaded
func (c *Conversation) PendingMessages() []*Message {
	return c.pending
}

// ClearPending forgets appended messages after they were persisted
func (c *Conversation) ClearPending() {
	c.pending = nil
}

func (c *Conversation) append(dir Direction, kind MessageKind, body string, at time.Time) *Message {
	if kind == "" {
		kind = KindText
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	m := &Message{
		ID:        uuid.New(),
		TenantID:  c.TenantID,
		ConvID:    c.ID,
		Direction: dir,
		Kind:      kind,
		Body:      body,
		SentAt:    at,
	}
	c.pending = append(c.pending, m)
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		c.LastMessageAt = &at
		c.LastPreview = preview(body)
	}
	c.IncrementVersion()
	return m
}

// MarkSent records the outcome of an outbound delivery attempt
func (m *Message) MarkSent(externalID string) {
	m.ExternalID = externalID
	m.Status = StatusSent
	m.Error = ""
}

// MarkFailed records a failed outbound delivery
func (m *Message) MarkFailed(err error) {
	m.Status = StatusFailed
	if err != nil {
		m.Error = err.Error()
	}
}

func preview(body string) string {
	r := []rune(strings.TrimSpace(body))
	if len(r) > 80 {
		return string(r[:77]) + "..."
	}
	return string(r)
}
