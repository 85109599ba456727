// Package fanout runs one step list against several backends concurrently
// and merges the results. Output slots are keyed by backend index at
// submission time, so completion order never leaks into the reported
// order: Names[k], Results[k], Scores[k], and Usage[k] always describe the
// same backend.
package fanout

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/backend"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/chain"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

// Evaluator ranks the final step result of every backend. It returns the
// winning response and one normalized score per backend, in backend order.
// Failed backends appear as zero-value results.
type Evaluator func(finals []models.Result) (best models.Result, scores []float64)

// NameFn maps a backend handle to its display name.
type NameFn func(h backend.Handle) string

// Phase is the lifecycle stage of one backend's chain inside a fan-out.
type Phase int

const (
	PhaseQueued Phase = iota
	PhaseRunning
	PhaseDone
	PhaseFailed
)

// Event reports a phase change for one backend. Index is the backend's
// submission index.
type Event struct {
	Index int
	Name  string
	Phase Phase
	Err   error
}

// Config configures a fan-out run.
type Config struct {
	// MaxWorkers bounds how many backend chains run at once (default 4).
	MaxWorkers int
	// Evaluator ranks final results (default DefaultEvaluator).
	Evaluator Evaluator
	// NameFn labels each backend (default: the handle's ID).
	NameFn NameFn
	// ChainOpts is the option set handed to every per-backend sequential
	// runner. A shared artifact store is safe here: its save path is
	// serialized internally.
	ChainOpts chain.Options
	// OnEvent, when set, receives a phase change per backend. It is called
	// from worker goroutines and must be safe for concurrent use.
	OnEvent func(Event)
}

// Result aggregates a fan-out run. All per-backend slices are indexed by
// the submission order of the handles.
type Result struct {
	// Top is the evaluator's winning response.
	Top models.Result
	// TopIndex is the backend index of the winner (-1 when every
	// backend failed).
	TopIndex int
	// Results holds each backend's per-step results.
	Results [][]models.Result
	// Requests holds each backend's resolved per-step requests.
	Requests [][]string
	// Scores holds the evaluator's normalized score per backend.
	Scores []float64
	// Names holds each backend's display name.
	Names []string
	// Usage holds each backend's total token usage.
	Usage []models.Usage
	// Errs holds the terminal error for each failed backend, nil for
	// the rest.
	Errs []error
}

// Run fans the step list out to every handle on a bounded worker pool and
// waits for all of them. One backend exhausting its retries fails only its
// own slot; the remaining chains still run to completion and are reported.
func Run(ctx context.Context, vars map[string]string, handles []backend.Handle, steps []string, cfg Config) (*Result, error) {
	if len(handles) == 0 {
		return nil, errors.New("no backends supplied")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = DefaultEvaluator
	}
	if cfg.NameFn == nil {
		cfg.NameFn = func(h backend.Handle) string { return h.ID }
	}

	out := &Result{
		Results:  make([][]models.Result, len(handles)),
		Requests: make([][]string, len(handles)),
		Names:    make([]string, len(handles)),
		Usage:    make([]models.Usage, len(handles)),
		Errs:     make([]error, len(handles)),
	}

	notify := cfg.OnEvent
	if notify == nil {
		notify = func(Event) {}
	}

	sem := make(chan struct{}, cfg.MaxWorkers)
	var wg sync.WaitGroup

	for i, h := range handles {
		out.Names[i] = cfg.NameFn(h)
		notify(Event{Index: i, Name: out.Names[i], Phase: PhaseQueued})

		wg.Add(1)
		go func(slot int, h backend.Handle) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			notify(Event{Index: slot, Name: out.Names[slot], Phase: PhaseRunning})

			runner := chain.NewRunner(h.Backend, cfg.ChainOpts)
			res, err := runner.Run(ctx, vars, steps)
			if err != nil {
				log.Printf("[fanout] backend %s failed: %v", h.ID, err)
				out.Errs[slot] = err
				notify(Event{Index: slot, Name: out.Names[slot], Phase: PhaseFailed, Err: err})
			} else {
				notify(Event{Index: slot, Name: out.Names[slot], Phase: PhaseDone})
			}
			if res != nil {
				out.Results[slot] = res.Results
				out.Requests[slot] = res.Requests
				for _, u := range res.Usage {
					out.Usage[slot].Add(u)
				}
			}
		}(i, h)
	}

	wg.Wait()

	finals := make([]models.Result, len(handles))
	for i, results := range out.Results {
		if out.Errs[i] == nil && len(results) > 0 {
			finals[i] = results[len(results)-1]
		}
	}

	out.Top, out.Scores = cfg.Evaluator(finals)
	out.TopIndex = topIndex(out.Scores, out.Errs)

	return out, nil
}

// topIndex returns the index of the best-scoring surviving backend.
func topIndex(scores []float64, errs []error) int {
	best := -1
	for i, score := range scores {
		if errs[i] != nil {
			continue
		}
		if best == -1 || score > scores[best] {
			best = i
		}
	}
	return best
}
