package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/logger"
	"github.com/anime-shed/table-inspector-go/internal/parser"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorBody     = 512
)

// Client talks to an OpenAI-compatible chat completion endpoint.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	httpc *http.Client
}

// NewClient creates a client with a tuned transport. Per-call deadlines come from
// Settings, so the http.Client itself has no timeout.
func NewClient() *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
	}

	return &Client{httpc: &http.Client{Transport: tr}}
}

// WithHTTPClient overrides the internal HTTP client
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpc = h
	}
	return c
}

// Analyze sends an already preprocessed image to the model and returns the normalized result.
// Exactly one HTTP attempt is made.
func (c *Client) Analyze(ctx context.Context, img image.Image, s Settings) (*models.AnalysisResult, error) {
	req, err := BuildAnalysisRequest(img, s)
	if err != nil {
		return nil, err
	}

	content, err := c.Complete(ctx, req, s)
	if err != nil {
		return nil, err
	}

	return parser.ParseAnalysis(content)
}

// Complete posts req and returns choices[0].message.content as text.
func (c *Client) Complete(ctx context.Context, req *ChatRequest, s Settings) (string, error) {
	if err := s.checkCredential(); err != nil {
		return "", err
	}
	if err := s.checkEndpoint(); err != nil {
		return "", err
	}

	status, body, err := c.post(ctx, req, s, s.Timeout)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", apperrors.NewUpstreamStatusError(status, truncateBytes(body, maxErrorBody))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperrors.NewResponseFormatError("failed to parse chat completion envelope", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", apperrors.NewResponseFormatError("no choices in response", nil)
	}

	return contentText(chatResp.Choices[0].Message.Content)
}

// TestConnection sends the minimal probe and reports success only on HTTP 200.
// It never returns an error; every failure is described in the status message.
func (c *Client) TestConnection(ctx context.Context, s Settings) models.ConnectivityStatus {
	if !s.HasCredential() {
		return models.ConnectivityStatus{Success: false, Message: "connection failed: API key is not configured"}
	}
	if err := s.checkEndpoint(); err != nil {
		return models.ConnectivityStatus{Success: false, Message: fmt.Sprintf("connection error: %v", err)}
	}

	status, _, err := c.post(ctx, BuildProbeRequest(s), s, s.ProbeTimeout)
	if err != nil {
		return models.ConnectivityStatus{Success: false, Message: fmt.Sprintf("connection error: %v", err)}
	}
	if status != http.StatusOK {
		return models.ConnectivityStatus{Success: false, Message: fmt.Sprintf("connection failed: status %d", status)}
	}
	return models.ConnectivityStatus{Success: true, Message: "connection succeeded"}
}

// post performs a single bounded POST and returns the status and body.
func (c *Client) post(ctx context.Context, payload *ChatRequest, s Settings, timeout time.Duration) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, apperrors.NewInternalError("failed to marshal request", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, apperrors.NewConfigurationError("failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	log := logger.WithFields(logrus.Fields{
		"endpoint": s.Endpoint,
		"model":    s.Model,
		"api_key":  logger.MaskSecret(s.APIKey),
		"bytes":    len(data),
	})
	start := time.Now()

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.WithError(err).Warn("Vision request failed")
		return 0, nil, apperrors.NewTransportError("vision request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, apperrors.NewTransportError("failed to read vision response", err)
	}

	log.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Vision request completed")

	return resp.StatusCode, body, nil
}

// contentText flattens message content. Multimodal replies have their text parts joined;
// any other shape is handed on as JSON.
func contentText(content any) (string, error) {
	switch v := content.(type) {
	case string:
		return v, nil
	case nil:
		return "", apperrors.NewResponseFormatError("empty message content", nil)
	case []any:
		var b strings.Builder
		for _, part := range v {
			p, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := p["text"].(string); ok {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return "", apperrors.NewResponseFormatError("failed to marshal message content", err)
	}
	return string(raw), nil
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
