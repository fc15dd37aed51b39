package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// openAICompatible serves every provider speaking the OpenAI chat
// completions dialect: OpenAI itself, OpenRouter, and LM Studio.
type openAICompatible struct {
	name    string
	client  *openai.Client
	http    *http.Client
	timeout time.Duration
}

// headerTransport injects static headers into every request. OpenRouter
// uses these for app attribution.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

func newOpenAICompatible(name, apiKey, baseURL string, timeout time.Duration, headers map[string]string) *openAICompatible {
	httpClient := &http.Client{Timeout: timeout}
	if len(headers) > 0 {
		httpClient.Transport = &headerTransport{headers: headers}
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient

	return &openAICompatible{
		name:    name,
		client:  openai.NewClientWithConfig(cfg),
		http:    httpClient,
		timeout: timeout,
	}
}

func (c *openAICompatible) Complete(ctx context.Context, messages []Message, model string) (*Completion, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: chatMessages,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &Error{Backend: c.name, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return nil, &Error{Backend: c.name, Message: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Backend: c.name, Message: "no choices returned"}
	}

	choice := resp.Choices[0].Message
	return &Completion{
		Text: choice.Content,
		// Some OpenRouter-served models return a separate reasoning field.
		ReasoningTrace: choice.ReasoningContent,
	}, nil
}

func (c *openAICompatible) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
