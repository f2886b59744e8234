package whatsapp

import (
	"testing"
	"time"

	"github.com/petshop/erp/internal/domain/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA-1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "551130000000", "phone_number_id": "109876543210"},
        "contacts": [{"profile": {"name": "Maria"}, "wa_id": "5511987654321"}],
        "messages": [
          {"from": "5511987654321", "id": "wamid.A", "timestamp": "1740830400", "type": "text", "text": {"body": "Oi! Tem banho hoje?"}},
          {"from": "5511987654321", "id": "wamid.B", "timestamp": "1740830460", "type": "image",
           "image": {"id": "media-9", "mime_type": "image/jpeg", "caption": "o Rex"}},
          {"from": "5511987654321", "id": "wamid.C", "timestamp": "1740830470", "type": "sticker", "sticker": {"id": "s1"}}
        ]
      }
    }]
  }, {
    "id": "WABA-1",
    "changes": [{
      "field": "messages",
      "value": {
        "metadata": {"phone_number_id": "109876543210"},
        "statuses": [{"id": "wamid.OUT1", "status": "delivered"}]
      }
    }]
  }]
}`

func TestParseWebhook(t *testing.T) {
	msgs, err := ParseWebhook([]byte(samplePayload))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	text := msgs[0]
	assert.Equal(t, "109876543210", text.PhoneNumberID)
	assert.Equal(t, "5511987654321", text.From)
	assert.Equal(t, "Maria", text.ProfileName)
	assert.Equal(t, crm.KindText, text.Kind)
	assert.Equal(t, "Oi! Tem banho hoje?", text.Body)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), text.SentAt)

	image := msgs[1]
	assert.Equal(t, crm.KindImage, image.Kind)
	assert.Equal(t, "media-9", image.MediaID)
	assert.Equal(t, "image/jpeg", image.MimeType)
	assert.Equal(t, "o Rex", image.Body)

	assert.Equal(t, crm.KindOther, msgs[2].Kind)
	assert.Equal(t, "[sticker]", msgs[2].Body)
}

func TestParseWebhook_Rejects(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"object":"page","entry":[]}`))
	assert.Error(t, err)

	_, err = ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(samplePayload)
	secret := "app-secret"

	assert.NoError(t, VerifySignature(secret, body, Sign(secret, body)))
	assert.ErrorIs(t, VerifySignature(secret, body, Sign("other", body)), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, append(body, ' '), Sign(secret, body)), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, body, "sha1=abc"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature(secret, body, "sha256=zz"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifySignature("", body, Sign("", body)), ErrInvalidSignature)
}

func TestVerifyChallenge(t *testing.T) {
	got, ok := VerifyChallenge("verify-me", "subscribe", "verify-me", "12345")
	assert.True(t, ok)
	assert.Equal(t, "12345", got)

	_, ok = VerifyChallenge("verify-me", "subscribe", "wrong", "12345")
	assert.False(t, ok)
	_, ok = VerifyChallenge("verify-me", "unsubscribe", "verify-me", "12345")
	assert.False(t, ok)
	_, ok = VerifyChallenge("", "subscribe", "", "12345")
	assert.False(t, ok)
}
