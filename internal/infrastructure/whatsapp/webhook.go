package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	crmapp "github.com/petshop/erp/internal/application/crm"
	"github.com/petshop/erp/internal/domain/crm"
)

// SignatureHeader carries the HMAC of the webhook body
const SignatureHeader = "X-Hub-Signature-256"

// ErrInvalidSignature is returned when the webhook signature does not match the body
var ErrInvalidSignature = errors.New("whatsapp: invalid webhook signature")

// VerifySignature checks header ("sha256=<hex>") against the HMAC-SHA256 of body keyed with appSecret
func VerifySignature(appSecret string, body []byte, header string) error {
	hexSig, ok := strings.CutPrefix(header, "sha256=")
	if !ok || appSecret == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(hexSig)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the header value for body; used by tests and local tooling
func Sign(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyChallenge answers the subscription handshake. It returns the challenge
// to echo when mode is "subscribe" and the token matches.
func VerifyChallenge(verifyToken, mode, token, challenge string) (string, bool) {
	if verifyToken == "" || mode != "subscribe" || !hmac.Equal([]byte(token), []byte(verifyToken)) {
		return "", false
	}
	return challenge, true
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *webhookMedia `json:"image"`
	Audio    *webhookMedia `json:"audio"`
	Voice    *webhookMedia `json:"voice"`
	Document *webhookMedia `json:"document"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
	} `json:"location"`
	Button *struct {
		Text string `json:"text"`
	} `json:"button"`
}

// ParseWebhook extracts the inbound messages of a Cloud API notification.
// Status updates and other fields are ignored.
func ParseWebhook(body []byte) ([]crmapp.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("whatsapp: malformed webhook: %w", err)
	}
	if p.Object != "whatsapp_business_account" {
		return nil, fmt.Errorf("whatsapp: unexpected webhook object %q", p.Object)
	}

	var out []crmapp.InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			v := change.Value
			names := make(map[string]string, len(v.Contacts))
			for _, c := range v.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range v.Messages {
				in := crmapp.InboundMessage{
					PhoneNumberID: v.Metadata.PhoneNumberID,
					From:          m.From,
					ProfileName:   names[m.From],
					ExternalID:    m.ID,
					SentAt:        parseTimestamp(m.Timestamp),
				}
				fillContent(&in, m)
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func fillContent(in *crmapp.InboundMessage, m webhookMessage) {
	media := func(kind crm.MessageKind, md *webhookMedia) {
		in.Kind = kind
		in.MediaID = md.ID
		in.MimeType = md.MimeType
		in.Body = md.Caption
		if in.Body == "" {
			in.Body = md.Filename
		}
	}

	switch {
	case m.Type == "text" && m.Text != nil:
		in.Kind, in.Body = crm.KindText, m.Text.Body
	case m.Type == "image" && m.Image != nil:
		media(crm.KindImage, m.Image)
	case m.Type == "audio" && m.Audio != nil:
		media(crm.KindAudio, m.Audio)
	case m.Type == "voice" && m.Voice != nil:
		media(crm.KindAudio, m.Voice)
	case m.Type == "document" && m.Document != nil:
		media(crm.KindDocument, m.Document)
	case m.Type == "location" && m.Location != nil:
		in.Kind = crm.KindLocation
		in.Body = strings.TrimSpace(fmt.Sprintf("%s %s (%.6f, %.6f)",
			m.Location.Name, m.Location.Address, m.Location.Latitude, m.Location.Longitude))
	case m.Type == "button" && m.Button != nil:
		in.Kind, in.Body = crm.KindText, m.Button.Text
	default:
		in.Kind = crm.KindOther
		in.Body = "[" + m.Type + "]"
	}
}

func parseTimestamp(s string) time.Time {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
