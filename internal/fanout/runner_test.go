package fanout

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/backend"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chain"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// delayedBackend answers with its own tag after an artificial delay.
func delayedBackend(tag string, delay time.Duration) backend.Handle {
	return backend.Handle{
		ID: tag,
		Backend: backend.Func(func(_ context.Context, request string) (string, *models.Usage, error) {
			time.Sleep(delay)
			return tag + ":" + request, &models.Usage{PromptTokens: 2, CompletionTokens: 3}, nil
		}),
	}
}

func failingBackend(tag string) backend.Handle {
	return backend.Handle{
		ID: tag,
		Backend: backend.Func(func(_ context.Context, _ string) (string, *models.Usage, error) {
			return "", nil, errors.New("permanently down")
		}),
	}
}

func fastChainOpts() chain.Options {
	return chain.Options{BackoffUnit: time.Millisecond}
}

func TestRunPreservesBackendOrderDespiteCompletionOrder(t *testing.T) {
	// A slow, B fast, C medium: completion order is B, C, A but the
	// reported order must stay A, B, C.
	handles := []backend.Handle{
		delayedBackend("A", 60*time.Millisecond),
		delayedBackend("B", 0),
		delayedBackend("C", 25*time.Millisecond),
	}

	res, err := Run(context.Background(), nil, handles, []string{"step"},
		Config{MaxWorkers: 3, ChainOpts: fastChainOpts()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(res.Names, []string{"A", "B", "C"}) {
		t.Errorf("Names = %v, want [A B C]", res.Names)
	}
	for k, tag := range []string{"A", "B", "C"} {
		if len(res.Results[k]) != 1 {
			t.Fatalf("backend %s: %d results", tag, len(res.Results[k]))
		}
		if got, want := res.Results[k][0].String(), tag+":step"; got != want {
			t.Errorf("Results[%d] = %q, want %q", k, got, want)
		}
		if got, want := res.Requests[k][0], "step"; got != want {
			t.Errorf("Requests[%d] = %q, want %q", k, got, want)
		}
		if res.Usage[k].Total() != 5 {
			t.Errorf("Usage[%d] = %d tokens, want 5", k, res.Usage[k].Total())
		}
	}
}

func TestRunBoundedWorkers(t *testing.T) {
	handles := []backend.Handle{
		delayedBackend("a", 10*time.Millisecond),
		delayedBackend("b", 10*time.Millisecond),
		delayedBackend("c", 10*time.Millisecond),
		delayedBackend("d", 10*time.Millisecond),
	}

	// One worker forces serial execution; just assert it completes with
	// every slot filled.
	res, err := Run(context.Background(), nil, handles, []string{"x"},
		Config{MaxWorkers: 1, ChainOpts: fastChainOpts()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for k := range handles {
		if len(res.Results[k]) != 1 {
			t.Errorf("slot %d empty", k)
		}
	}
}

func TestRunPartialFailureKeepsSiblings(t *testing.T) {
	handles := []backend.Handle{
		delayedBackend("ok1", 0),
		failingBackend("bad"),
		delayedBackend("ok2", 0),
	}

	res, err := Run(context.Background(), nil, handles, []string{"go"},
		Config{MaxWorkers: 3, ChainOpts: fastChainOpts()})
	if err != nil {
		t.Fatalf("Run should not fail on a single backend: %v", err)
	}

	if res.Errs[1] == nil {
		t.Error("failed backend's slot should carry its error")
	}
	var stepErr *chain.StepError
	if !errors.As(res.Errs[1], &stepErr) {
		t.Errorf("Errs[1] type %T, want *chain.StepError", res.Errs[1])
	}
	if res.Errs[0] != nil || res.Errs[2] != nil {
		t.Errorf("sibling errors = %v, %v; want nil", res.Errs[0], res.Errs[2])
	}

	if len(res.Results[0]) != 1 || len(res.Results[2]) != 1 {
		t.Error("surviving backends should report results")
	}
	if res.TopIndex == 1 {
		t.Error("failed backend must never win")
	}
	if res.Scores[1] != 0 {
		t.Errorf("failed backend score = %v, want 0", res.Scores[1])
	}
}

func TestRunCustomEvaluatorAndNames(t *testing.T) {
	handles := []backend.Handle{
		delayedBackend("first", 0),
		delayedBackend("second", 0),
	}

	eval := func(finals []models.Result) (models.Result, []float64) {
		// Always prefer the second backend.
		return finals[1], []float64{0.2, 1.0}
	}
	nameFn := func(h backend.Handle) string { return "model/" + h.ID }

	res, err := Run(context.Background(), nil, handles, []string{"q"},
		Config{Evaluator: eval, NameFn: nameFn, ChainOpts: fastChainOpts()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.TopIndex != 1 {
		t.Errorf("TopIndex = %d, want 1", res.TopIndex)
	}
	if res.Top.String() != "second:q" {
		t.Errorf("Top = %q", res.Top.String())
	}
	if !reflect.DeepEqual(res.Names, []string{"model/first", "model/second"}) {
		t.Errorf("Names = %v", res.Names)
	}
}

func TestRunNoBackends(t *testing.T) {
	if _, err := Run(context.Background(), nil, nil, []string{"x"}, Config{}); err == nil {
		t.Error("Run with no backends should error")
	}
}

func TestDefaultEvaluator(t *testing.T) {
	finals := []models.Result{
		models.TextResult("short"),
		models.StructuredResult(map[string]any{"a": 1}),
		models.TextResult(""),
	}

	best, scores := DefaultEvaluator(finals)

	if !best.IsStructured() {
		t.Errorf("best = %v, want the structured final", best)
	}
	if scores[1] != 1.0 {
		t.Errorf("winner score = %v, want 1.0", scores[1])
	}
	if scores[2] != 0 {
		t.Errorf("empty final score = %v, want 0", scores[2])
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("score[%d] = %v outside [0,1]", i, s)
		}
	}
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	handles := []backend.Handle{
		delayedBackend("ok", 0),
		failingBackend("bad"),
	}

	var mu sync.Mutex
	phases := make(map[int][]Phase)

	cfg := Config{
		MaxWorkers: 2,
		ChainOpts:  fastChainOpts(),
		OnEvent: func(e Event) {
			mu.Lock()
			phases[e.Index] = append(phases[e.Index], e.Phase)
			mu.Unlock()
		},
	}

	if _, err := Run(context.Background(), nil, handles, []string{"step"}, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[int][]Phase{
		0: {PhaseQueued, PhaseRunning, PhaseDone},
		1: {PhaseQueued, PhaseRunning, PhaseFailed},
	}
	for idx, seq := range want {
		if !reflect.DeepEqual(phases[idx], seq) {
			t.Errorf("backend %d phases = %v, want %v", idx, phases[idx], seq)
		}
	}
}
