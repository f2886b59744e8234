package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/partner"
)

// InboundMessage is one message parsed from a WhatsApp webhook delivery
type InboundMessage struct {
	PhoneNumberID string // business number that received the message
	From          string // sender phone in international format without "+"
	ProfileName   string
	ExternalID    string
	Kind          crm.MessageKind
	Body          string
	MediaID       string
	MimeType      string
	SentAt        time.Time
}

// WhatsAppGateway talks to the WhatsApp Cloud API
type WhatsAppGateway interface {
	SendText(ctx context.Context, phoneNumberID, to, body string) (externalID string, err error)
	DownloadMedia(ctx context.Context, mediaID string) (data []byte, mimeType string, err error)
}

// MediaStore archives downloaded media
type MediaStore interface {
	MediaKey(tenantID uuid.UUID, mediaID, mimeType string) string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// ClientResolver finds the client behind a phone number, registering one if needed
type ClientResolver interface {
	FindOrCreateByPhone(ctx context.Context, tenantID uuid.UUID, phone, name string) (*partner.Client, bool, error)
}
