package crm

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

const EventTypeMessageReceived = "MessageReceived"

// MessageReceivedEvent is published for every inbound WhatsApp message
type MessageReceivedEvent struct {
	shared.BaseDomainEvent
	MessageID uuid.UUID   `json:"message_id"`
	ClientID  uuid.UUID   `json:"client_id"`
	Kind      MessageKind `json:"kind"`
	Preview   string      `json:"preview"`
	SentAt    time.Time   `json:"sent_at"`
}
