// Package gemini provides the generative-AI client used for analysis,
// OCR and the auxiliary file store.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mosaic-labs/docpilot-cli/internal/core/domain"
	"github.com/mosaic-labs/docpilot-cli/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.GenerativeClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	// DefaultTimeout bounds each request. Timeouts land in the same
	// fallback path as any other transport failure.
	DefaultTimeout = 8 * time.Second
)

// defaultRequestsPerMinute caps outbound calls to stay inside free-tier
// quotas.
const defaultRequestsPerMinute = 30

// Config holds configuration for the gemini client.
type Config struct {
	// APIKey authenticates requests (required).
	APIKey string

	// BaseURL is the API base URL. Can point at a proxy or mock.
	BaseURL string

	// Model is the model identifier.
	Model string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RequestsPerMinute caps the outbound request rate. Zero uses the
	// default.
	RequestsPerMinute int
}

// Client talks to a Gemini-style generateContent endpoint.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	model   string
}

// generateRequest is the generateContent request format.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []wirePart `json:"parts"`
}

// wirePart carries either text or inline binary data.
type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// generateResponse is the generateContent response format.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// uploadResponse is the file-store upload response format.
type uploadResponse struct {
	File struct {
		URI string `json:"uri"`
	} `json:"file"`
	Error *apiError `json:"error,omitempty"`
}

// New creates a new gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// Generate sends the parts in order and returns the first candidate's
// text. Non-2xx responses and transport failures wrap
// domain.ErrAIService; cancellation wraps domain.ErrAborted.
func (c *Client) Generate(ctx context.Context, parts []driven.Part) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: %w: no parts", domain.ErrInvalidInput)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", abortOrService(ctx, err)
	}

	wire := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.Data != nil {
			wire = append(wire, wirePart{InlineData: &inlineData{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
			continue
		}
		wire = append(wire, wirePart{Text: p.Text})
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: wire}}})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	respBody, err := c.post(ctx, url, "application/json", body)
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: unparsable response: %w", domain.ErrAIService, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s (%d)", domain.ErrAIService, resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrAIService)
	}

	var out bytes.Buffer
	for _, p := range resp.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

// UploadFile stores raw bytes in the remote file store and returns the
// file URI.
func (c *Client) UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", abortOrService(ctx, err)
	}

	url := fmt.Sprintf("%s/files?name=%s", c.baseURL, filename)
	respBody, err := c.post(ctx, url, mimeType, data)
	if err != nil {
		return "", err
	}

	var resp uploadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: unparsable upload response: %w", domain.ErrAIService, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s (%d)", domain.ErrAIService, resp.Error.Message, resp.Error.Code)
	}
	if resp.File.URI == "" {
		return "", fmt.Errorf("%w: upload returned no file uri", domain.ErrAIService)
	}
	return resp.File.URI, nil
}

// post issues an authenticated POST and returns the body of a 2xx
// response.
func (c *Client) post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, abortOrService(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrAIService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrAIService, resp.StatusCode, truncate(respBody, 200))
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("%w: empty response body", domain.ErrAIService)
	}
	return respBody, nil
}

// abortOrService distinguishes caller cancellation from service failure.
// Only a done caller context is an abort: a client-side request timeout
// also surfaces as context.DeadlineExceeded, and that is a transport
// failure the retry and fallback paths must see as one.
func abortOrService(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("gemini: %w: %w", domain.ErrAborted, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrAIService, err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
