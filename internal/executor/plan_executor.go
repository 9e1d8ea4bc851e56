// Package executor applies an ordered plan of change items against the
// remote resource API, fanning out bounded concurrent workers for
// independent items.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/confsync/confsync/internal/dependency"
	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/logging"
)

// PlanExecutor walks a plan in dependency order and records per-item
// outcomes. The plan itself is never mutated.
type PlanExecutor struct {
	clients     interfaces.RemoteClientSet
	retry       *RetryHandler
	concurrency int
	callTimeout time.Duration
	dryRun      bool
	logger      *logging.Logger
}

// Option is a functional option for configuring a PlanExecutor
type Option func(*PlanExecutor)

// WithConcurrency bounds the number of items applied in parallel.
func WithConcurrency(n int) Option {
	return func(e *PlanExecutor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithRetryConfig sets the retry policy for transient remote failures.
func WithRetryConfig(cfg *RetryConfig) Option {
	return func(e *PlanExecutor) {
		e.retry = NewRetryHandler(cfg)
	}
}

// WithCallTimeout bounds each individual remote call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(e *PlanExecutor) {
		if timeout > 0 {
			e.callTimeout = timeout
		}
	}
}

// WithDryRun makes the executor classify and order without issuing any
// mutating call, recording projected outcomes.
func WithDryRun(dryRun bool) Option {
	return func(e *PlanExecutor) {
		e.dryRun = dryRun
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *logging.Logger) Option {
	return func(e *PlanExecutor) {
		e.logger = logger
	}
}

// New creates a plan executor for the given remote client set.
func New(clients interfaces.RemoteClientSet, opts ...Option) *PlanExecutor {
	executor := &PlanExecutor{
		clients:     clients,
		retry:       NewRetryHandler(nil),
		concurrency: 4,
		callTimeout: 30 * time.Second,
		logger:      logging.NewLogger("executor"),
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Execute applies the plan and returns the outcome report. Creates and
// updates run first in dependency order; deletes run afterwards in reverse
// order. Cancelling ctx stops dispatching new items, lets in-flight items
// finish, and marks everything undispatched skipped-cancelled.
func (e *PlanExecutor) Execute(ctx context.Context, plan *interfaces.Plan, graph *dependency.Graph) *interfaces.Report {
	report := &interfaces.Report{
		PlanID:    plan.ID,
		DryRun:    e.dryRun,
		Orphans:   plan.Orphans,
		StartedAt: time.Now(),
	}

	results := make([]interfaces.ItemResult, len(plan.Items))
	var upserts, deletes []int
	for i := range plan.Items {
		results[i].Item = plan.Items[i]
		switch plan.Items[i].Action {
		case interfaces.ActionNoOp:
			// Recorded for reporting, never executed.
			results[i].Status = interfaces.StatusNoOp
		case interfaces.ActionDelete:
			deletes = append(deletes, i)
		default:
			upserts = append(upserts, i)
		}
	}

	e.runPhase(ctx, plan, upserts, buildUpsertDeps(plan, graph, upserts), results)
	e.runPhase(ctx, plan, deletes, buildDeleteDeps(plan, deletes), results)

	report.Results = results
	report.Counts = countResults(results)
	report.CompletedAt = time.Now()

	applied := report.Counts.Created + report.Counts.Updated + report.Counts.Deleted + report.Counts.NoOp
	e.logger.ApplySummary(applied, len(results))
	return report
}

// itemOutcome travels from a worker back to the scheduling loop.
type itemOutcome struct {
	idx      int
	status   interfaces.ItemStatus
	attempts int
	err      error
}

// runPhase schedules one phase of the plan (upserts or deletes). Items
// dispatch as soon as their prerequisites succeed; a failure marks every
// transitive dependent skipped rather than attempting it.
//
//nolint:gocognit // Scheduling loop covers dispatch, skip propagation and cancellation
func (e *PlanExecutor) runPhase(
	ctx context.Context,
	plan *interfaces.Plan,
	indices []int,
	deps map[int][]int,
	results []interfaces.ItemResult,
) {
	if len(indices) == 0 {
		return
	}

	remaining := make(map[int]int, len(indices))
	dependents := make(map[int][]int, len(indices))
	for _, j := range indices {
		remaining[j] = len(deps[j])
		for _, i := range deps[j] {
			dependents[i] = append(dependents[i], j)
		}
	}

	pool := workerpool.New(e.concurrency)
	defer pool.StopWait()

	done := make(chan itemOutcome, len(indices))
	pending := make(map[int]bool, len(indices))
	for _, i := range indices {
		pending[i] = true
	}

	outstanding := len(indices)
	inFlight := 0
	dispatched := 0

	resolve := func(i int, status interfaces.ItemStatus, attempts int, err error) {
		results[i].Status = status
		results[i].Attempts = attempts
		if err != nil {
			results[i].Error = err.Error()
		}
		outstanding--
	}

	dispatch := func(i int) {
		delete(pending, i)
		inFlight++
		dispatched++
		item := plan.Items[i]
		e.logger.ChangeItemStart(string(item.Action), string(item.Type), item.ExternalID, dispatched, len(indices))
		pool.Submit(func() {
			status, attempts, err := e.applyItem(ctx, &item)
			done <- itemOutcome{idx: i, status: status, attempts: attempts, err: err}
		})
	}

	// skipDependents marks every transitive dependent of a failed item.
	var skipDependents func(i int)
	skipDependents = func(i int) {
		for _, j := range dependents[i] {
			if !pending[j] {
				continue
			}
			delete(pending, j)
			resolve(j, interfaces.StatusSkippedUpstream, 0,
				fmt.Errorf("prerequisite %s failed", plan.Items[i].Key()))
			skipDependents(j)
		}
	}

	// Initial dispatch in plan order keeps runs deterministic.
	for _, i := range indices {
		if remaining[i] == 0 {
			dispatch(i)
		}
	}

	cancelled := false
	cancelCh := ctx.Done()
	for outstanding > 0 {
		if inFlight == 0 {
			// Nothing running and nothing ready: either cancellation
			// drained the pool or skip propagation resolved the rest.
			break
		}

		select {
		case out := <-done:
			inFlight--
			item := &plan.Items[out.idx]
			resolve(out.idx, out.status, out.attempts, out.err)
			if out.status == interfaces.StatusFailed {
				e.logger.ChangeItemFailed(string(item.Action), string(item.Type), item.ExternalID, out.err)
				skipDependents(out.idx)
				continue
			}
			e.logger.ChangeItemSuccess(string(item.Action), string(item.Type), item.ExternalID)
			for _, j := range dependents[out.idx] {
				remaining[j]--
				if remaining[j] == 0 && pending[j] && !cancelled {
					dispatch(j)
				}
			}
		case <-cancelCh:
			// Stop dispatching; in-flight items finish or fail naturally.
			cancelled = true
			cancelCh = nil
		}
	}

	// Anything still pending was never dispatched.
	for _, i := range indices {
		if pending[i] {
			if cancelled {
				resolve(i, interfaces.StatusSkippedCancelled, 0, ctx.Err())
				continue
			}
			// Without a cancellation the only way here is a prerequisite
			// cycle among the pending items.
			resolve(i, interfaces.StatusSkippedUpstream, 0,
				fmt.Errorf("prerequisites of %s never completed", plan.Items[i].Key()))
		}
	}
}

// applyItem executes one change item through the remote API, retrying
// transient failures.
func (e *PlanExecutor) applyItem(ctx context.Context, item *interfaces.ChangeItem) (interfaces.ItemStatus, int, error) {
	if e.dryRun {
		return interfaces.StatusPlanned, 0, nil
	}

	client, err := e.clients.ForType(item.Type)
	if err != nil {
		return interfaces.StatusFailed, 0, fmt.Errorf("no remote client for %s: %w", item.Type, err)
	}

	operation := fmt.Sprintf("%s %s", item.Action, item.Key())
	attempts, err := e.retry.ExecuteWithRetry(ctx, operation, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		defer cancel()

		switch item.Action {
		case interfaces.ActionCreate:
			return client.Create(callCtx, item.ExternalID, item.Desired)
		case interfaces.ActionUpdate:
			return client.Update(callCtx, item.ExternalID, item.Desired)
		case interfaces.ActionDelete:
			return client.Delete(callCtx, item.ExternalID)
		default:
			return nil
		}
	})
	if err != nil {
		return interfaces.StatusFailed, attempts, err
	}
	return interfaces.StatusApplied, attempts, nil
}

func countResults(results []interfaces.ItemResult) interfaces.ReportCounts {
	var counts interfaces.ReportCounts
	for i := range results {
		switch results[i].Status {
		case interfaces.StatusApplied, interfaces.StatusPlanned:
			switch results[i].Item.Action {
			case interfaces.ActionCreate:
				counts.Created++
			case interfaces.ActionUpdate:
				counts.Updated++
			case interfaces.ActionDelete:
				counts.Deleted++
			}
		case interfaces.StatusNoOp:
			counts.NoOp++
		case interfaces.StatusFailed:
			counts.Failed++
		case interfaces.StatusSkippedUpstream:
			counts.Skipped++
		case interfaces.StatusSkippedCancelled:
			counts.Cancelled++
		}
	}
	return counts
}
