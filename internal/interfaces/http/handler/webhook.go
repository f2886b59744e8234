package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	crmapp "github.com/petshop/erp/internal/application/crm"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/infrastructure/whatsapp"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// WhatsAppIngester stores inbound WhatsApp messages
type WhatsAppIngester interface {
	Ingest(ctx context.Context, msgs []crmapp.InboundMessage) (*crmapp.IngestResult, error)
}

// WhatsAppWebhookHandler receives the Cloud API callbacks. It runs outside the
// JWT and tenant middleware; each message is routed by its receiving number.
type WhatsAppWebhookHandler struct {
	BaseHandler
	ingester    WhatsAppIngester
	appSecret   string
	verifyToken string
}

// NewWhatsAppWebhookHandler creates a new WhatsAppWebhookHandler
func NewWhatsAppWebhookHandler(ingester WhatsAppIngester, appSecret, verifyToken string) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{
		ingester:    ingester,
		appSecret:   appSecret,
		verifyToken: verifyToken,
	}
}

// Verify handles GET /webhooks/whatsapp
func (h *WhatsAppWebhookHandler) Verify(c *gin.Context) {
	challenge, ok := whatsapp.VerifyChallenge(h.verifyToken,
		c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive handles POST /webhooks/whatsapp
func (h *WhatsAppWebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body too large")
			return
		}
		h.BadRequest(c, "Unreadable body")
		return
	}
	if err := whatsapp.VerifySignature(h.appSecret, body, c.GetHeader("X-Hub-Signature-256")); err != nil {
		h.Unauthorized(c, "Invalid signature")
		return
	}

	msgs, err := whatsapp.ParseWebhook(body)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed webhook payload")
		return
	}
	if len(msgs) == 0 {
		c.Status(http.StatusOK)
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), msgs)
	if err != nil {
		// a non-2xx makes the provider redeliver; duplicates are ignored on the way back in
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("whatsapp webhook ingested",
		zap.Int("stored", result.Stored),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("skipped", result.Skipped),
	)
	h.Success(c, result)
}
