package backend

import (
	"context"
	"sync"
	"testing"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(models.Usage{PromptTokens: 100, CompletionTokens: 50})
	tracker.Add(models.Usage{PromptTokens: 30, CompletionTokens: 20})

	total := tracker.Total()
	if total.PromptTokens != 130 || total.CompletionTokens != 70 {
		t.Errorf("Total() = %+v, want 130/70", total)
	}
	if tracker.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tracker.Calls())
	}
	if tracker.Cost() <= 0 {
		t.Errorf("Cost() = %v, want positive", tracker.Cost())
	}

	tracker.Reset()
	if total := tracker.Total(); total.Total() != 0 {
		t.Errorf("after Reset, Total() = %+v", total)
	}
	if tracker.Calls() != 0 {
		t.Errorf("after Reset, Calls() = %d", tracker.Calls())
	}
}

func TestTokenTrackerConcurrentAdd(t *testing.T) {
	tracker := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Add(models.Usage{PromptTokens: 1, CompletionTokens: 1})
			}
		}()
	}
	wg.Wait()

	if total := tracker.Total(); total.PromptTokens != 1000 {
		t.Errorf("PromptTokens = %d, want 1000", total.PromptTokens)
	}
	if tracker.Calls() != 1000 {
		t.Errorf("Calls() = %d, want 1000", tracker.Calls())
	}
}

func TestFuncAdapter(t *testing.T) {
	b := Func(func(_ context.Context, request string) (string, *models.Usage, error) {
		return "echo:" + request, &models.Usage{PromptTokens: 1}, nil
	})

	text, usage, err := b.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if text != "echo:hi" {
		t.Errorf("text = %q", text)
	}
	if usage.PromptTokens != 1 {
		t.Errorf("usage = %+v", usage)
	}
}
