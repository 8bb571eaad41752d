// Package cascade runs independent extraction strategies in order, each
// under its own time budget, and returns the first non-empty result.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/ingest"
	"github.com/joseph-ayodele/refund-audit/internal/record"
)

// DefaultMaxItems caps the records returned for one upload.
const DefaultMaxItems = 10

// Strategy is one extraction method.
type Strategy interface {
	Name() constants.Strategy
	Extract(ctx context.Context, path string) ([]record.ItemRecord, error)
}

// Step schedules a strategy. A zero Timeout means no budget of its own.
// RunIf, when set, is asked with the attempts made so far whether the step
// should run at all.
type Step struct {
	Strategy Strategy
	Timeout  time.Duration
	RunIf    func(ctx context.Context, prior []Attempt) bool
}

// Attempt records one strategy run.
type Attempt struct {
	ID       uuid.UUID
	Strategy constants.Strategy
	Path     string
	Budget   time.Duration
	Started  time.Time
	Elapsed  time.Duration
	Items    int
	Err      error
	TimedOut bool
	Panicked bool
}

// Result of one extraction. Success is false only when the caller's
// context ended before any strategy produced records.
type Result struct {
	Success  bool
	Records  []record.ItemRecord
	Strategy constants.Strategy
	Attempts []Attempt
	Message  string
}

type Orchestrator struct {
	steps    []Step
	maxItems int
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithMaxItems(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxItems = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		steps:    steps,
		maxItems: DefaultMaxItems,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Extract checks the file preconditions, then tries each step until one
// yields records. When every step comes back empty the placeholder record
// is returned with Success set. The only errors are the precondition
// failures and the caller's own context error.
func (o *Orchestrator) Extract(ctx context.Context, path string) (Result, error) {
	if err := ingest.VerifyFile(path); err != nil {
		o.logger.Warn("cascade.precondition.failed", "path", path, "error", err)
		return Result{Message: err.Error()}, err
	}

	var attempts []Attempt
	for _, step := range o.steps {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}
		name := step.Strategy.Name()
		if step.RunIf != nil && !step.RunIf(ctx, attempts) {
			o.logger.Debug("cascade.step.skipped", "strategy", name, "path", path)
			continue
		}

		a, recs := o.run(ctx, step, path)
		attempts = append(attempts, a)
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempts}, err
		}
		if len(recs) == 0 {
			continue
		}
		o.logger.Info("cascade.success", "strategy", name, "path", path, "items", len(recs),
			"attempts", len(attempts))
		return Result{
			Success:  true,
			Records:  recs,
			Strategy: name,
			Attempts: attempts,
			Message:  fmt.Sprintf("Extracted %d item(s) using %s", len(recs), name),
		}, nil
	}

	o.logger.Warn("cascade.placeholder", "path", path, "attempts", len(attempts))
	recs := record.FromSources([]record.Placeholder{{At: o.now()}}, o.maxItems)
	return Result{
		Success:  true,
		Records:  recs,
		Strategy: constants.StrategyPlaceholder,
		Attempts: attempts,
		Message:  "All extraction methods failed; returned a placeholder record",
	}, nil
}

type outcome struct {
	recs     []record.ItemRecord
	err      error
	panicked bool
}

// run executes one step. A strategy that ignores cancellation is abandoned
// once its budget expires; its goroutine finishes into a buffered channel.
func (o *Orchestrator) run(ctx context.Context, step Step, path string) (Attempt, []record.ItemRecord) {
	a := Attempt{
		ID:       uuid.New(),
		Strategy: step.Strategy.Name(),
		Path:     path,
		Budget:   step.Timeout,
		Started:  o.now(),
	}
	start := time.Now()

	var sctx context.Context
	var cancel context.CancelFunc
	if step.Timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, step.Timeout)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("strategy %s panicked: %v", a.Strategy, r), panicked: true}
			}
		}()
		recs, err := step.Strategy.Extract(sctx, path)
		ch <- outcome{recs: recs, err: err}
	}()

	var out outcome
	select {
	case out = <-ch:
	case <-sctx.Done():
		out = outcome{err: sctx.Err()}
	}
	a.Elapsed = time.Since(start)
	a.Err = out.err
	a.Panicked = out.panicked
	a.TimedOut = ctx.Err() == nil && errors.Is(sctx.Err(), context.DeadlineExceeded) &&
		(out.err == nil || errors.Is(out.err, context.DeadlineExceeded))

	var recs []record.ItemRecord
	if out.err == nil {
		recs = record.NormalizeAll(out.recs, o.maxItems)
	}
	a.Items = len(recs)

	log := o.logger.With("attempt_id", a.ID, "strategy", a.Strategy, "path", path,
		"budget_ms", a.Budget.Milliseconds(), "elapsed_ms", a.Elapsed.Milliseconds())
	switch {
	case a.Panicked:
		log.Error("cascade.step.panicked", "error", a.Err)
	case a.TimedOut:
		log.Warn("cascade.step.timeout")
	case a.Err != nil:
		log.Warn("cascade.step.failed", "error", a.Err)
	default:
		log.Info("cascade.step.done", "items", a.Items, "raw_items", len(out.recs))
	}
	return a, recs
}

// AfterTimeout lets a step run only when the named strategy timed out or
// was never attempted.
func AfterTimeout(s constants.Strategy) func(context.Context, []Attempt) bool {
	return func(_ context.Context, prior []Attempt) bool {
		for _, a := range prior {
			if a.Strategy == s {
				return a.TimedOut
			}
		}
		return true
	}
}
