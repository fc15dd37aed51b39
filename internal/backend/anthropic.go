package backend

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

const anthropicBaseURL = "https://api.anthropic.com"

// anthropicClient talks to the Anthropic Messages API directly; there is
// no official Go SDK dependency here.
type anthropicClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func newAnthropicClient(apiKey, baseURL string, timeout time.Duration) *anthropicClient {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &anthropicClient{
		apiKey:  apiKey,
		baseURL: trimSlash(baseURL),
		http:    &http.Client{Timeout: timeout},
	}
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Complete(ctx context.Context, messages []Message, model string) (*Completion, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, &Error{Backend: "anthropic", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Backend: "anthropic", Message: err.Error()}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Backend: "anthropic", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Backend: "anthropic", Message: err.Error()}
	}

	var parsed anthropicResponse
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &Error{Backend: "anthropic", StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Backend: "anthropic", Message: fmt.Sprintf("malformed response: %v", err)}
	}

	// Thinking-capable models return separate thinking blocks alongside
	// the answer text.
	var text, thinking strings.Builder
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		}
	}

	return &Completion{Text: text.String(), ReasoningTrace: thinking.String()}, nil
}

func (c *anthropicClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
