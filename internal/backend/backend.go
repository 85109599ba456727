// Package backend defines the pluggable text-generation contract the
// orchestrator calls, plus the Anthropic implementation.
package backend

import (
	"context"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// Backend sends one resolved request to a text-generation service.
// Errors are surfaced as error values so the orchestrator's retry logic
// can tell transport failure apart from a well-formed-but-wrong response.
// Usage is nil when the backend does not report token counts.
type Backend interface {
	Invoke(ctx context.Context, request string) (string, *models.Usage, error)
}

// Handle pairs a backend with the identifier the fan-out runner and traces
// use to label its results.
type Handle struct {
	ID      string
	Backend Backend
}

// Func adapts a plain function to the Backend interface.
type Func func(ctx context.Context, request string) (string, *models.Usage, error)

// Invoke implements Backend.
func (f Func) Invoke(ctx context.Context, request string) (string, *models.Usage, error) {
	return f(ctx, request)
}
