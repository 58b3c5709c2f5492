// Package scheduler owns the two pieces of background activity in the
// application: debounced report regeneration with latest-request-wins
// semantics, and the periodic recompute tick that defensively re-derives
// invoice totals.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces filter-change bursts while the user is still
// typing.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces rapid Schedule calls: only the most recently scheduled
// function runs, after the configured delay. Scheduling again cancels both a
// pending run and the context of an in-flight one, so a superseded result is
// discarded rather than merged. Runs for the same Debouncer never overlap.
type Debouncer struct {
	delay time.Duration
	log   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc

	runMu sync.Mutex // serializes run execution
}

func NewDebouncer(delay time.Duration, log *zap.Logger) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Debouncer{delay: delay, log: log}
}

// Schedule queues fn to run after the debounce delay, superseding any
// pending or in-flight run. fn must honor ctx cancellation.
func (d *Debouncer) Schedule(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel() // discard the superseded run
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	run := uuid.New()

	d.timer = time.AfterFunc(d.delay, func() {
		d.runMu.Lock()
		defer d.runMu.Unlock()
		if ctx.Err() != nil {
			return // superseded while waiting
		}
		start := time.Now()
		d.log.Debug("report run start", zap.String("run", run.String()))
		fn(ctx)
		if ctx.Err() != nil {
			d.log.Debug("report run superseded", zap.String("run", run.String()))
			return
		}
		d.log.Debug("report run done",
			zap.String("run", run.String()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Stop cancels any pending or in-flight run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
