package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// ConversationRepository persists conversations and their messages for the context tenant
type ConversationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) (*Conversation, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Conversation, int64, error)
	ListMessages(ctx context.Context, convID uuid.UUID, filter shared.Filter) ([]Message, int64, error)
	// MessageExists reports whether a WhatsApp message id was already stored
	MessageExists(ctx context.Context, externalID string) (bool, error)
	// Save persists the conversation, its pending messages and events
	Save(ctx context.Context, conv *Conversation) error
	UpdateMessage(ctx context.Context, msg *Message) error
}
