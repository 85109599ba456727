package backend

import (
	"sync"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// TokenTracker accumulates usage across a client's calls. Chains and
// fan-out workers may share one client, so all access is locked.
type TokenTracker struct {
	mu    sync.Mutex
	total models.Usage
	calls int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add folds one call's usage into the running total.
func (t *TokenTracker) Add(u models.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total.Add(u)
	t.calls++
}

// Total returns the accumulated usage.
func (t *TokenTracker) Total() models.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears the tracker.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = models.Usage{}
	t.calls = 0
}

// Cost estimates the cost in USD from current Sonnet pricing
// ($3/1M input, $15/1M output, approximate).
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	inputCost := float64(t.total.PromptTokens) / 1_000_000 * 3.0
	outputCost := float64(t.total.CompletionTokens) / 1_000_000 * 15.0
	return inputCost + outputCost
}
