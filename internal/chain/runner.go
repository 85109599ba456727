// Package chain drives an ordered step list through reference resolution,
// backend invocation, response coercion, and optional artifact persistence,
// producing a trace of the run. Execution is strictly sequential: a step
// never starts before the previous step's result is committed to history,
// because later templates may reference it.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/artifact"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/backend"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/coerce"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/resolve"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/internal/signal"
	"github.com/ryan258/promptchaining-for-5th-graders-sub000/pkg/models"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffUnit = 2 * time.Second
	templateMetaLimit  = 200
)

// ErrStopped is returned when a stop signal halts the chain between steps.
var ErrStopped = errors.New("chain stopped by signal")

// StepError identifies the step that exhausted its retry budget.
type StepError struct {
	StepIndex int
	Attempts  int
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d failed after %d attempts: %v", e.StepIndex, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Options configures a Runner beyond its backend.
type Options struct {
	// Store and Topic enable persistence: when both are set, every step
	// result is saved under topic:stepName.
	Store *artifact.Store
	Topic string
	// Signals, when set, is consulted between steps; a pending stop
	// signal ends the run with ErrStopped.
	Signals *signal.Manager
	// MaxAttempts is the per-step retry budget (default 3).
	MaxAttempts int
	// BackoffUnit is the fixed unit of the linear retry backoff
	// (sleep = attempt x unit; default 2s).
	BackoffUnit time.Duration
	// Logger receives step-level debug lines; nil is a no-op.
	Logger *DebugLogger
}

// RunResult is the full outcome of one chain run. Callers needing only the
// results and requests ignore the rest.
type RunResult struct {
	// RunID is a short unique identifier for this run.
	RunID string
	// Results holds one coerced result per completed step.
	Results []models.Result
	// Requests holds the resolved request sent for each step.
	Requests []string
	// Usage holds per-step token usage, summed across retry attempts.
	Usage []models.Usage
	// Trace is the ordered step record with a running token total.
	Trace models.Trace
}

// Runner executes step lists against a single backend.
type Runner struct {
	backend backend.Backend
	opts    Options
}

// NewRunner creates a runner for the given backend, applying option
// defaults.
func NewRunner(b backend.Backend, opts Options) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = defaultBackoffUnit
	}
	return &Runner{backend: b, opts: opts}
}

// Run executes the steps in order. Each step is resolved against the
// variable context, the accumulated history, and the artifact store, then
// invoked with bounded retry and coerced. A step that exhausts its
// transport-retry budget stops the run immediately; the returned RunResult
// still describes every step completed before the failure.
func (r *Runner) Run(ctx context.Context, vars map[string]string, steps []string) (*RunResult, error) {
	res := &RunResult{RunID: uuid.New().String()[:8]}

	var lookup resolve.ArtifactLookup
	if r.opts.Store != nil {
		lookup = r.opts.Store.Get
	}

	var history []models.Result
	for i, template := range steps {
		if r.opts.Signals != nil && r.opts.Signals.ShouldStop() {
			r.opts.Logger.Log("run %s: stop signal before step %d", res.RunID, i)
			return res, ErrStopped
		}

		request, usedKeys := resolve.Resolve(template, vars, history, lookup)
		res.Requests = append(res.Requests, request)
		r.opts.Logger.Log("run %s: step %d resolved (%d chars, %d artifact refs)", res.RunID, i, len(request), len(usedKeys))

		result, usage, err := r.invokeWithRetry(ctx, i, template, request)
		if err != nil {
			return res, err
		}

		history = append(history, result)
		res.Results = append(res.Results, result)
		res.Usage = append(res.Usage, usage)

		role := RoleLabel(template)
		name := role
		if name == "" {
			name = fmt.Sprintf("step_%d", i+1)
			role = name
		}

		if r.opts.Store != nil && r.opts.Topic != "" {
			meta := map[string]any{
				"step_index": i,
				"template":   truncate(template, templateMetaLimit),
			}
			if len(usedKeys) > 0 {
				meta["used_artifacts"] = usedKeys
			}
			if err := r.opts.Store.Save(r.opts.Topic, name, result.Value(), meta); err != nil {
				return res, fmt.Errorf("persist step %d result: %w", i, err)
			}
		}

		res.Trace.Add(models.TraceEntry{
			StepIndex: i,
			Role:      role,
			Request:   request,
			Result:    result,
			Tokens:    usage.Total(),
		})
	}

	return res, nil
}

// invokeWithRetry calls the backend up to the attempt budget. Transport
// errors retry and are fatal once the budget is spent. A text result where
// the template expects JSON retries as a soft failure: when the budget is
// spent the text result stands and the chain proceeds.
func (r *Runner) invokeWithRetry(ctx context.Context, stepIndex int, template, request string) (models.Result, models.Usage, error) {
	expects := ExpectsStructured(template)

	var total models.Usage
	for attempt := 1; ; attempt++ {
		text, usage, err := r.backend.Invoke(ctx, request)
		if usage != nil {
			total.Add(*usage)
		}

		if err != nil {
			log.Printf("[chain] step %d attempt %d/%d failed: %v", stepIndex, attempt, r.opts.MaxAttempts, err)
			if attempt >= r.opts.MaxAttempts {
				return models.Result{}, total, &StepError{StepIndex: stepIndex, Attempts: attempt, Err: err}
			}
			time.Sleep(time.Duration(attempt) * r.opts.BackoffUnit)
			continue
		}

		result := coerce.Coerce(text)
		if expects && !result.IsStructured() && attempt < r.opts.MaxAttempts {
			log.Printf("[chain] step %d attempt %d/%d returned text where JSON was expected, retrying", stepIndex, attempt, r.opts.MaxAttempts)
			time.Sleep(time.Duration(attempt) * r.opts.BackoffUnit)
			continue
		}

		return result, total, nil
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
