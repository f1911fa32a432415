package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/liac-group/outreach-cli/internal/model"
	"github.com/liac-group/outreach-cli/internal/resilience"
)

// StoreError marks a persistence failure. Unlike provider errors, which are
// scoped to one company, a StoreError aborts the whole batch.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func storeFailure(err error, op, company string) error {
	return &StoreError{Err: eris.Wrapf(err, "%s for %s", op, company)}
}

func isStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// runStage executes one stage through its circuit breaker and retry policy,
// then appends the outcome row. fn returns the detail map recorded on
// success. The stage name doubles as the breaker key; rate limiting happens
// inside the stage implementations at provider granularity.
func (o *Orchestrator) runStage(ctx context.Context, batchID, company string, stage model.Stage, fn func(ctx context.Context) (map[string]any, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempts := 1
	cfg := o.retryFor(stage)
	prev := cfg.OnRetry
	cfg.OnRetry = func(n int, err error) {
		attempts++
		if hint := resilience.RetryAfterHint(err); hint > 0 {
			o.deps.Gate.Penalize(string(stage), hint)
		}
		if prev != nil {
			prev(n, err)
		}
	}

	var detail map[string]any
	breaker := o.deps.Breakers.Get(string(stage))
	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Do(ctx, cfg, func(ctx context.Context) error {
			d, ferr := fn(ctx)
			if ferr == nil {
				detail = d
			}
			return ferr
		})
	})

	out := model.StageOutcome{
		BatchID:   batchID,
		Company:   company,
		Stage:     stage,
		Success:   err == nil,
		Detail:    detail,
		Timestamp: o.nowFunc().UTC(),
	}
	if err != nil {
		out.Error = err.Error()
		out.Detail = map[string]any{
			"transient": resilience.IsTransient(err),
			"attempts":  attempts,
		}
		// The final attempt's error never passes through OnRetry.
		if hint := resilience.RetryAfterHint(err); hint > 0 {
			o.deps.Gate.Penalize(string(stage), hint)
		}
	}

	// Cancelled stages still get their row on the audit trail.
	if serr := o.deps.Store.AppendStageOutcome(context.WithoutCancel(ctx), out); serr != nil {
		return storeFailure(serr, "recording "+string(stage)+" outcome", company)
	}
	return err
}

func (o *Orchestrator) retryFor(stage model.Stage) resilience.RetryConfig {
	if cfg, ok := o.cfg.StageRetries[stage]; ok {
		return cfg
	}
	cfg := o.cfg.DefaultRetry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(string(stage), "stage")
	}
	return cfg
}
