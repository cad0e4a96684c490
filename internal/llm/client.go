// Package llm provides a minimal chat-completions client used by the
// advisor. Rate-limit responses are retried internally with exponential
// backoff, transparently to callers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxRetries = 5
	baseDelay  = 10 * time.Second
)

// Options configures the client
type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger

	// sleep is swappable in tests
	sleep func(time.Duration)
}

// NewClient creates a client
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
		sleep:  time.Sleep,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat sends a system+user prompt and returns the assistant message.
// HTTP 429 responses are retried with exponential backoff.
func (c *Client) Chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model:       c.opts.Model,
		Temperature: 0.3,
		MaxTokens:   c.opts.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &respFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		content, retryable, err := c.send(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}

		delay := baseDelay * (1 << attempt)
		c.logger.Warn("rate limited, retrying",
			"attempt", attempt+1, "max", maxRetries, "delay", delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		c.sleep(delay)
	}
	return "", fmt.Errorf("chat request failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, payload []byte) (content string, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", true, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("decoding chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("chat error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}

// ChatJSON sends a chat request in JSON mode and decodes the reply into out
func (c *Client) ChatJSON(ctx context.Context, system, user string, out any) error {
	raw, err := c.Chat(ctx, system, user, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Error("failed to parse model JSON response", "raw", truncate(raw, 500))
		return fmt.Errorf("parsing model JSON: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
