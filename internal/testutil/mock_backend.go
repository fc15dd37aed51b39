// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"strings"

	"github.com/credobench/runner/internal/backend"
)

// MockBackend is a configurable backend.Client used across test
// packages.
type MockBackend struct {
	// Responses maps a substring of the user message to a canned reply.
	// The first matching entry wins.
	Responses map[string]string

	// DefaultResponse is returned when nothing in Responses matches.
	DefaultResponse string

	// ReasoningTrace is attached to every successful completion.
	ReasoningTrace string

	// Err, when set, fails every call.
	Err error

	// CompleteFunc, when set, overrides all other behavior.
	CompleteFunc func(ctx context.Context, messages []backend.Message, model string) (*backend.Completion, error)

	// Calls tracks the number of Complete invocations.
	Calls int

	// LastMessages and LastModel record the most recent request.
	LastMessages []backend.Message
	LastModel    string

	// Closed records whether Close was called.
	Closed bool
}

func (m *MockBackend) Complete(ctx context.Context, messages []backend.Message, model string) (*backend.Completion, error) {
	m.Calls++
	m.LastMessages = messages
	m.LastModel = model

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, model)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	userContent := ""
	for _, msg := range messages {
		if msg.Role == "user" {
			userContent = msg.Content
		}
	}
	for key, resp := range m.Responses {
		if key != "" && strings.Contains(userContent, key) {
			return &backend.Completion{Text: resp, ReasoningTrace: m.ReasoningTrace}, nil
		}
	}
	if m.DefaultResponse != "" {
		return &backend.Completion{Text: m.DefaultResponse, ReasoningTrace: m.ReasoningTrace}, nil
	}
	return &backend.Completion{Text: "mock response", ReasoningTrace: m.ReasoningTrace}, nil
}

func (m *MockBackend) Close() error {
	m.Closed = true
	return nil
}
