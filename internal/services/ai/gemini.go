package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	quotaRetries = 2
	retryDelay   = 2 * time.Second
)

var (
	// ErrNoProvider is returned when every credential/model combination
	// failed during acquisition.
	ErrNoProvider = errors.New("no generation models available")

	// ErrQuota marks quota-class (HTTP 429) provider failures.
	ErrQuota = errors.New("provider quota exceeded")
)

// Content is one role-tagged turn sent to the provider.
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// UserText builds a single user turn from plain text.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// GenerateOptions are the per-call generation settings.
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// ModelHandle pairs a credential with the model it was verified against.
type ModelHandle struct {
	Credential string
	Model      string
}

// Service is the generation provider boundary.
type Service interface {
	AcquireModel(ctx context.Context, preferred string) (*ModelHandle, error)
	Generate(ctx context.Context, h *ModelHandle, contents []Content, opts GenerateOptions) (string, error)
	GenerateWithRetry(ctx context.Context, h *ModelHandle, contents []Content, opts GenerateOptions) (string, error)
}

// Client talks to the Gemini REST API with a rotating credential pool
// and ordered model fallback.
type Client struct {
	cfg        *config.ProviderConfig
	keys       []string
	keyIndex   uint64
	httpClient *http.Client
	pacer      *rate.Limiter
	metrics    *middleware.Metrics
	logger     *logrus.Logger

	baseURL    string
	retryDelay time.Duration
}

// NewClient creates the provider client.
func NewClient(cfg *config.ProviderConfig, metrics *middleware.Metrics, logger *logrus.Logger) *Client {
	rps := cfg.OutboundRPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.OutboundBurst
	if burst <= 0 {
		burst = 1
	}

	logger.WithFields(logrus.Fields{
		"keys":     len(cfg.APIKeys),
		"primary":  cfg.PrimaryModel,
		"fallback": len(cfg.FallbackModels),
	}).Info("Provider client initialized")

	return &Client{
		cfg:  cfg,
		keys: cfg.APIKeys,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		pacer:      rate.NewLimiter(rate.Limit(rps), burst),
		metrics:    metrics,
		logger:     logger,
		baseURL:    defaultBaseURL,
		retryDelay: retryDelay,
	}
}

// nextKey selects the next credential round-robin. The atomic counter
// keeps rotation safe under concurrent requests.
func (c *Client) nextKey() string {
	i := atomic.AddUint64(&c.keyIndex, 1) - 1
	return c.keys[i%uint64(len(c.keys))]
}

// AcquireModel picks the next credential and probes the preferred model
// with a minimal generation call, walking the fallback list in order.
// Probe failures are logged and swallowed; only full exhaustion fails.
func (c *Client) AcquireModel(ctx context.Context, preferred string) (*ModelHandle, error) {
	if len(c.keys) == 0 {
		return nil, ErrNoProvider
	}

	if preferred == "" {
		preferred = c.cfg.PrimaryModel
	}

	candidates := make([]string, 0, 1+len(c.cfg.FallbackModels))
	candidates = append(candidates, preferred)
	for _, m := range c.cfg.FallbackModels {
		if m != preferred {
			candidates = append(candidates, m)
		}
	}

	key := c.nextKey()
	var lastErr error

	for _, model := range candidates {
		handle := &ModelHandle{Credential: key, Model: model}

		_, err := c.Generate(ctx, handle, []Content{UserText("Hola")}, GenerateOptions{MaxOutputTokens: 10})
		if err == nil {
			c.logger.WithField("model", model).Debug("Model available")
			return handle, nil
		}

		lastErr = err
		c.logger.WithError(err).WithField("model", model).Warn("Model probe failed, trying fallback")
	}

	return nil, fmt.Errorf("%w: %v", ErrNoProvider, lastErr)
}

// Generate issues a single generation call and returns the produced
// text. Quota failures are reported as ErrQuota; this method never
// retries on its own.
func (c *Client) Generate(ctx context.Context, h *ModelHandle, contents []Content, opts GenerateOptions) (string, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}

	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}

	reqBody := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"maxOutputTokens": maxTokens,
			"temperature":     opts.Temperature,
		},
		"safetySettings": []map[string]string{
			{"category": "HARM_CATEGORY_HARASSMENT", "threshold": "BLOCK_MEDIUM_AND_ABOVE"},
			{"category": "HARM_CATEGORY_HATE_SPEECH", "threshold": "BLOCK_MEDIUM_AND_ABOVE"},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, h.Model, h.Credential)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordRequest(h.Model, "error", start)
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRequest(h.Model, "error", start)
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.recordRequest(h.Model, "quota", start)
		return "", fmt.Errorf("%w: %s", ErrQuota, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		c.recordRequest(h.Model, "error", start)
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"model":  h.Model,
		}).Error("Provider request failed")
		return "", fmt.Errorf("provider request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []Part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		c.recordRequest(h.Model, "error", start)
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		c.recordRequest(h.Model, "error", start)
		return "", fmt.Errorf("provider error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		c.recordRequest(h.Model, "empty", start)
		return "", fmt.Errorf("no response from provider")
	}

	var text bytes.Buffer
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	c.recordRequest(h.Model, "success", start)
	return text.String(), nil
}

// GenerateWithRetry retries quota-class failures up to two extra times
// with a fixed delay before propagating the error. Other failures are
// never retried.
func (c *Client) GenerateWithRetry(ctx context.Context, h *ModelHandle, contents []Content, opts GenerateOptions) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= quotaRetries; attempt++ {
		text, err := c.Generate(ctx, h, contents, opts)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !errors.Is(err, ErrQuota) || attempt == quotaRetries {
			return "", err
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"model":   h.Model,
		}).Warn("Quota exceeded, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	return "", lastErr
}

func (c *Client) recordRequest(model, status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordProviderRequest(model, status, time.Since(start))
	}
}
