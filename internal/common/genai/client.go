// Package genai talks to an OpenAI-compatible chat completion and moderation
// API.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
	"shopassist/internal/models"
)

// Request is one completion call. System, when set, is sent as the leading
// system message ahead of Messages.
type Request struct {
	System   string
	Messages []models.Turn
	JSONMode bool
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Moderator reports whether text is flagged by content policy.
type Moderator interface {
	Moderate(ctx context.Context, text string) (bool, error)
}

var errNonRetryable = errors.New("non-retryable response")

type Client struct {
	config *Config
	http   *http.Client
	logger logger.Logger
}

func NewClient(cfg *Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{},
		logger: log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Seed           int             `json:"seed"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type moderationRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged bool `json:"flagged"`
	} `json:"results"`
}

// Complete sends the conversation to /chat/completions and returns the first
// choice. Transport failures, 429 and 5xx are retried; exhaustion surfaces
// as ErrServiceUnavailable.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: string(models.RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Seed:        c.config.Seed,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := c.post(ctx, "completion", "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		metrics.CapabilityCalls.WithLabelValues("completion", "empty").Inc()
		return "", fmt.Errorf("%w: completion returned no choices", apperrors.ErrServiceUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// Moderate sends text to /moderations.
func (c *Client) Moderate(ctx context.Context, text string) (bool, error) {
	var resp moderationResponse
	if err := c.post(ctx, "moderation", "/moderations", moderationRequest{Model: c.config.ModerationModel, Input: text}, &resp); err != nil {
		return false, err
	}
	if len(resp.Results) == 0 {
		return false, fmt.Errorf("%w: moderation returned no results", apperrors.ErrServiceUnavailable)
	}
	return resp.Results[0].Flagged, nil
}

func (c *Client) post(ctx context.Context, capability, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", capability, err)
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + path

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				metrics.CapabilityCalls.WithLabelValues(capability, "timeout").Inc()
				return fmt.Errorf("%w: %s: %v", apperrors.ErrServiceUnavailable, capability, ctx.Err())
			}
		}

		lastErr = c.doOnce(ctx, url, payload, out)
		if lastErr == nil {
			metrics.CapabilityCalls.WithLabelValues(capability, "ok").Inc()
			return nil
		}
		if errors.Is(lastErr, errNonRetryable) || ctx.Err() != nil {
			break
		}

		c.logger.Warn("capability call failed, retrying", map[string]interface{}{
			"capability": capability,
			"attempt":    attempt + 1,
			"error":      lastErr.Error(),
		})
	}

	metrics.CapabilityCalls.WithLabelValues(capability, "error").Inc()
	c.logger.Error("capability unavailable", map[string]interface{}{
		"capability": capability,
		"error":      lastErr.Error(),
	})
	return fmt.Errorf("%w: %s: %v", apperrors.ErrServiceUnavailable, capability, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, payload []byte, out interface{}) error {
	callCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", errNonRetryable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return statusErr
		}
		return fmt.Errorf("%w: %v", errNonRetryable, statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.config.Backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<(attempt-1))
	if c.config.MaxBackoff > 0 && d > c.config.MaxBackoff {
		d = c.config.MaxBackoff
	}
	return d
}
