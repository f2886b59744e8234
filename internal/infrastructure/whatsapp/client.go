// Package whatsapp is a WhatsApp Cloud API (Graph API) client and webhook parser.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	crmapp "github.com/petshop/erp/internal/application/crm"
	"github.com/petshop/erp/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var _ crmapp.WhatsAppGateway = (*Client)(nil)

const maxMediaBytes = 16 << 20

// APIError is an error answer of the Graph API
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

// Client calls the Graph API with retries on throttling and server errors
type Client struct {
	http       *http.Client
	baseURL    string
	version    string
	token      string
	maxRetries uint
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBackOff replaces the retry schedule
func WithBackOff(fn func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.newBackOff = fn
	}
}

// NewClient creates a Graph API client
func NewClient(cfg config.WhatsAppConfig, logger *zap.Logger, opts ...ClientOption) *Client {
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v21.0"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 4
	}
	maxElapsed := cfg.RetryTimeout
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}

	c := &Client{
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:    baseURL,
		version:    version,
		token:      cfg.AccessToken,
		maxRetries: uint(maxRetries),
		maxElapsed: maxElapsed,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 8 * time.Second
			return b
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a text message from the business number phoneNumberID and
// returns the WhatsApp message id
func (c *Client) SendText(ctx context.Context, phoneNumberID, to, body string) (string, error) {
	msg := textMessage{MessagingProduct: "whatsapp", RecipientType: "individual", To: to, Type: "text"}
	msg.Text.Body = body
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, phoneNumberID)

	var out sendResponse
	err = c.retry(ctx, "send_text", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.doJSON(req, &out)
	})
	if err != nil {
		return "", err
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp api: send response without message id")
	}
	return out.Messages[0].ID, nil
}

type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// DownloadMedia resolves a media id to its short-lived URL and fetches the bytes
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	var info mediaInfo
	err := c.retry(ctx, "media_info", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, mediaID), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		return c.doJSON(req, &info)
	})
	if err != nil {
		return nil, "", err
	}
	if info.FileSize > maxMediaBytes {
		return nil, "", fmt.Errorf("whatsapp media %s too large: %d bytes", mediaID, info.FileSize)
	}

	var data []byte
	err = c.retry(ctx, "media_download", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
		if err != nil {
			return err
		}
		if len(data) > maxMediaBytes {
			return backoff.Permanent(fmt.Errorf("whatsapp media %s too large", mediaID))
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, info.MimeType, nil
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err != nil {
			c.logger.Debug("whatsapp call failed",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxRetries+1),
		backoff.WithMaxElapsedTime(c.maxElapsed),
	)
	return err
}

// do sends an authorized request and maps error statuses. Throttling and 5xx
// answers are retryable; other 4xx answers are permanent.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error *APIError `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		envelope.Error.Status = resp.StatusCode
		apiErr = envelope.Error
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, apiErr
	case resp.StatusCode >= 500:
		return nil, apiErr
	default:
		return nil, backoff.Permanent(apiErr)
	}
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("whatsapp api: decode response: %w", err))
	}
	return nil
}
