package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const ollamaBaseURL = "http://localhost:11434"

// ollamaClient talks to a local Ollama server's chat endpoint.
type ollamaClient struct {
	baseURL string
	http    *http.Client
}

func newOllamaClient(baseURL string, timeout time.Duration) *ollamaClient {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return &ollamaClient{
		baseURL: trimSlash(baseURL),
		http:    &http.Client{Timeout: timeout},
	}
}

type ollamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaResponse struct {
	Message struct {
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
	Error string `json:"error"`
}

func (c *ollamaClient) Complete(ctx context.Context, messages []Message, model string) (*Completion, error) {
	payload, err := json.Marshal(ollamaRequest{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return nil, &Error{Backend: "ollama", Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Backend: "ollama", Message: err.Error()}
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, &Error{
				Backend: "ollama",
				Message: fmt.Sprintf("could not connect to %s, make sure Ollama is running", c.baseURL),
			}
		}
		return nil, &Error{Backend: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Backend: "ollama", Message: err.Error()}
	}

	var parsed ollamaResponse
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			msg = parsed.Error
		}
		return nil, &Error{Backend: "ollama", StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Backend: "ollama", Message: fmt.Sprintf("malformed response: %v", err)}
	}

	return &Completion{Text: parsed.Message.Content, ReasoningTrace: parsed.Message.Thinking}, nil
}

func (c *ollamaClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
