// Package backend provides a uniform client interface over the LLM
// providers a benchmark can run against.
package backend

import (
	"context"
	"fmt"
)

// Message is one chat turn sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a single-turn conversation.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// Completion is the result of one model call. ReasoningTrace carries any
// separate reasoning channel the provider exposes; it is empty for
// providers without one.
type Completion struct {
	Text           string
	ReasoningTrace string
}

// Client is the single contract all model backends implement. A client
// is exclusively owned by one run and must be closed when the run ends.
type Client interface {
	// Complete sends a chat conversation and returns the model's reply.
	Complete(ctx context.Context, messages []Message, model string) (*Completion, error)
	// Close releases any connections held by the client.
	Close() error
}

// Error is a typed failure from a backend call. StatusCode is zero for
// transport-level failures.
type Error struct {
	Backend    string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s backend error (%d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s backend error: %s", e.Backend, e.Message)
}
