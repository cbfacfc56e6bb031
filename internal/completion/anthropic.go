package completion

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// #endregion

// #region client

const (
	defaultBaseURL     = "https://api.anthropic.com"
	defaultModel       = "claude-haiku-4-5-20251001"
	apiVersion         = "2023-06-01"
	completeMaxTokens  = 1024
	classifyMaxTokens  = 20
	defaultHTTPTimeout = 60 * time.Second
)

// Client speaks the Anthropic messages API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used for proxies and tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithModel overrides the model id.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// NewClient returns a Client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   defaultModel,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// #endregion client

// #region wire-types

type apiRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type apiResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// #endregion wire-types

// #region complete

// Complete generates a response for the conversation so far.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	return c.call(ctx, system, messages, completeMaxTokens)
}

// Classify runs the single-label mode: the message is sent alone and the
// model is expected to answer with one word.
func (c *Client) Classify(ctx context.Context, system, text string) (string, error) {
	return c.call(ctx, system, []Message{{Role: RoleUser, Content: text}}, classifyMaxTokens)
}

func (c *Client) call(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	payload := apiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion http %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion api error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Content) == 0 || strings.TrimSpace(parsed.Content[0].Text) == "" {
		return "", fmt.Errorf("completion empty content")
	}

	return parsed.Content[0].Text, nil
}

func truncate(b []byte) string {
	const max = 200
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// #endregion complete
