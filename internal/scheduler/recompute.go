package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRecomputeInterval paces the totals backstop.
const DefaultRecomputeInterval = 5 * time.Minute

// Recomputer re-derives stored invoice totals and reports how many rows had
// drifted. The store's draft recompute pass implements it.
type Recomputer interface {
	RecomputeDraftTotals(ctx context.Context) (drifted int, err error)
}

// RunRecomputeLoop periodically invokes the recomputer until ctx is done.
// The pass is idempotent: it only rewrites rows whose stored totals disagree
// with the pricing engine, so a healthy database makes every tick a no-op.
func RunRecomputeLoop(ctx context.Context, interval time.Duration, r Recomputer, log *zap.Logger) {
	if interval <= 0 {
		interval = DefaultRecomputeInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drifted, err := r.RecomputeDraftTotals(ctx)
			if err != nil {
				log.Warn("totals backstop failed", zap.Error(err))
				continue
			}
			if drifted > 0 {
				log.Warn("totals backstop corrected drifted invoices", zap.Int("count", drifted))
			}
		}
	}
}
