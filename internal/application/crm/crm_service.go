package crm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/crm"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/petshop/erp/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const mediaURLTTL = 30 * time.Minute

// CRMService ingests WhatsApp traffic and sends replies
type CRMService struct {
	convRepo   crm.ConversationRepository
	clientRepo partner.ClientRepository
	tenantRepo identity.TenantRepository
	clients    ClientResolver
	gateway    WhatsAppGateway
	media      MediaStore
	logger     *zap.Logger
}

// NewCRMService creates a new CRMService. media may be nil when archiving is disabled.
func NewCRMService(
	convRepo crm.ConversationRepository,
	clientRepo partner.ClientRepository,
	tenantRepo identity.TenantRepository,
	clients ClientResolver,
	gateway WhatsAppGateway,
	media MediaStore,
	logger *zap.Logger,
) *CRMService {
	return &CRMService{
		convRepo:   convRepo,
		clientRepo: clientRepo,
		tenantRepo: tenantRepo,
		clients:    clients,
		gateway:    gateway,
		media:      media,
		logger:     logger,
	}
}

// Ingest stores the messages of a webhook delivery. Each message is routed to the
// tenant owning the receiving number; redelivered message ids are ignored.
func (s *CRMService) Ingest(ctx context.Context, msgs []InboundMessage) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "crm.ingest", telemetry.WithAttribute(telemetry.SpanAttrCount, len(msgs)))
	defer span.End()

	result := &IngestResult{}
	tenants := make(map[string]*identity.Tenant)

	for _, in := range msgs {
		t, ok := tenants[in.PhoneNumberID]
		if !ok {
			var err error
			t, err = s.resolveTenant(ctx, in.PhoneNumberID)
			if err != nil {
				telemetry.RecordError(span, err)
				return result, err
			}
			tenants[in.PhoneNumberID] = t
		}
		if t == nil {
			result.Skipped++
			continue
		}

		stored, err := s.ingestOne(tenant.ContextWithTenant(ctx, t.ID), t.ID, in)
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "INVALID_PHONE" {
				s.logger.Warn("whatsapp message from unusable phone skipped",
					zap.String("tenant_id", t.ID.String()),
					zap.String("external_id", in.ExternalID),
				)
				result.Skipped++
				continue
			}
			telemetry.RecordError(span, err)
			return result, err
		}
		if stored {
			result.Stored++
		} else {
			result.Duplicates++
		}
	}
	telemetry.SetAttributes(span,
		"crm.stored", result.Stored,
		"crm.duplicates", result.Duplicates,
		"crm.skipped", result.Skipped,
	)
	return result, nil
}

// resolveTenant returns nil for unknown numbers and suspended shops
func (s *CRMService) resolveTenant(ctx context.Context, phoneNumberID string) (*identity.Tenant, error) {
	t, err := s.tenantRepo.FindByWhatsAppPhoneID(tenant.WithSystemScope(ctx, "whatsapp webhook routing"), phoneNumberID)
	if errors.Is(err, shared.ErrNotFound) {
		s.logger.Warn("whatsapp message for unlinked number", zap.String("phone_number_id", phoneNumberID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !t.IsActive() {
		s.logger.Warn("whatsapp message for suspended tenant", zap.String("tenant_id", t.ID.String()))
		return nil, nil
	}
	return t, nil
}

func (s *CRMService) ingestOne(ctx context.Context, tenantID uuid.UUID, in InboundMessage) (bool, error) {
	seen, err := s.convRepo.MessageExists(ctx, in.ExternalID)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}

	client, created, err := s.clients.FindOrCreateByPhone(ctx, tenantID, in.From, in.ProfileName)
	if err != nil {
		return false, err
	}

	conv, err := s.convRepo.FindByClient(ctx, client.ID)
	if errors.Is(err, shared.ErrNotFound) {
		conv = crm.NewConversation(tenantID, client.ID, client.Phone)
	} else if err != nil {
		return false, err
	}

	_, err = conv.Receive(crm.ReceiveInput{
		ExternalID: in.ExternalID,
		Kind:       in.Kind,
		Body:       in.Body,
		MediaKey:   s.archive(ctx, tenantID, in),
		SentAt:     in.SentAt,
	})
	if err != nil {
		return false, err
	}
	if err := s.convRepo.Save(ctx, conv); err != nil {
		// a concurrent delivery of the same id lost the unique-index race
		if errors.Is(err, shared.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("whatsapp message received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.Bool("new_client", created),
		zap.String("kind", string(in.Kind)),
	)
	return true, nil
}

// archive copies media to object storage. Failures are logged; the message is kept without media.
func (s *CRMService) archive(ctx context.Context, tenantID uuid.UUID, in InboundMessage) string {
	if in.MediaID == "" || s.media == nil {
		return ""
	}
	data, mimeType, err := s.gateway.DownloadMedia(ctx, in.MediaID)
	if err != nil {
		s.logger.Warn("whatsapp media download failed",
			zap.String("media_id", in.MediaID),
			zap.Error(err),
		)
		return ""
	}
	if mimeType == "" {
		mimeType = in.MimeType
	}
	key := s.media.MediaKey(tenantID, in.MediaID, mimeType)
	if err := s.media.Put(ctx, key, data, mimeType); err != nil {
		s.logger.Warn("whatsapp media archive failed",
			zap.String("media_id", in.MediaID),
			zap.String("key", key),
			zap.Error(err),
		)
		return ""
	}
	return key
}

// SendMessage sends a text to a client and records it in their conversation.
// The message is stored before sending so a failed delivery stays visible.
func (s *CRMService) SendMessage(ctx context.Context, tenantID, userID, clientID uuid.UUID, req SendMessageRequest) (*MessageResponse, error) {
	t, err := s.tenantRepo.FindByID(tenant.WithSystemScope(ctx, "whatsapp sender number"), tenantID)
	if err != nil {
		return nil, err
	}
	if t.WhatsAppPhoneID == "" {
		return nil, shared.NewDomainError("WHATSAPP_NOT_LINKED", "No WhatsApp number is linked to this shop")
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.WrapDomainError("CLIENT_NOT_FOUND", "Client not found", err)
	}
	if err != nil {
		return nil, err
	}
	if !client.BelongsTo(tenantID) {
		return nil, shared.NewDomainError("CLIENT_NOT_FOUND", "Client not found")
	}
	if client.Phone == "" {
		return nil, shared.NewDomainError("MISSING_PHONE", "Client has no phone number")
	}

	conv, err := s.convRepo.FindByClient(ctx, client.ID)
	if errors.Is(err, shared.ErrNotFound) {
		conv = crm.NewConversation(tenantID, client.ID, client.Phone)
	} else if err != nil {
		return nil, err
	}

	msg, err := conv.Compose(req.Body, &userID)
	if err != nil {
		return nil, err
	}
	if err := s.convRepo.Save(ctx, conv); err != nil {
		return nil, err
	}

	externalID, sendErr := s.gateway.SendText(ctx, t.WhatsAppPhoneID, client.Phone.String(), msg.Body)
	if sendErr != nil {
		msg.MarkFailed(sendErr)
	} else {
		msg.MarkSent(externalID)
	}
	if err := s.convRepo.UpdateMessage(ctx, msg); err != nil {
		return nil, err
	}

	if sendErr != nil {
		s.logger.Error("whatsapp send failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("message_id", msg.ID.String()),
			zap.Error(sendErr),
		)
		return nil, shared.WrapDomainError("SEND_FAILED", "WhatsApp delivery failed", sendErr)
	}
	s.logger.Info("whatsapp message sent",
		zap.String("tenant_id", tenantID.String()),
		zap.String("message_id", msg.ID.String()),
		zap.String("external_id", externalID),
	)
	resp := ToMessageResponse(msg)
	return &resp, nil
}

// ListConversations returns a page of conversations, most recent first
func (s *CRMService) ListConversations(ctx context.Context, req ListConversationsRequest) (*shared.Paginated[ConversationResponse], error) {
	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		OrderBy:  "last_message_at",
		OrderDir: "desc",
	}.Normalize()
	if req.UnreadOnly {
		filter.Filters["unread"] = true
	}

	found, total, err := s.convRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]ConversationResponse, len(found))
	for i := range found {
		items[i] = ToConversationResponse(&found[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListMessages returns a page of a conversation, newest first. Archived media
// get a short-lived download URL.
func (s *CRMService) ListMessages(ctx context.Context, tenantID, convID uuid.UUID, req ListMessagesRequest) (*shared.Paginated[MessageResponse], error) {
	if _, err := s.load(ctx, tenantID, convID); err != nil {
		return nil, err
	}
	filter := shared.Filter{Page: req.Page, PageSize: req.PageSize, OrderDir: "desc"}.Normalize()

	found, total, err := s.convRepo.ListMessages(ctx, convID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]MessageResponse, len(found))
	for i := range found {
		items[i] = ToMessageResponse(&found[i])
		if found[i].MediaKey != "" && s.media != nil {
			url, _, err := s.media.PresignGet(ctx, found[i].MediaKey, mediaURLTTL)
			if err != nil {
				s.logger.Warn("media url presign failed", zap.String("key", found[i].MediaKey), zap.Error(err))
				continue
			}
			items[i].MediaURL = url
		}
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// MarkRead clears the unread counter of a conversation
func (s *CRMService) MarkRead(ctx context.Context, tenantID, convID uuid.UUID) (*ConversationResponse, error) {
	conv, err := s.load(ctx, tenantID, convID)
	if err != nil {
		return nil, err
	}
	if conv.Unread > 0 {
		conv.MarkRead()
		if err := s.convRepo.Save(ctx, conv); err != nil {
			return nil, err
		}
	}
	resp := ToConversationResponse(conv)
	return &resp, nil
}

func (s *CRMService) load(ctx context.Context, tenantID, id uuid.UUID) (*crm.Conversation, error) {
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.BelongsTo(tenantID) {
		return nil, shared.ErrNotFound
	}
	return conv, nil
}
