// internal/circulation/refresher.go
package circulation

import (
	"context"
	"log/slog"
	"time"
)

// Refresher runs the overdue pass once at start and then on every tick.
// A failed pass is logged and left for the next tick.
type Refresher struct {
	service  Service
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewRefresher(service Service, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{service: service, interval: interval, log: log, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	report, err := r.service.RefreshOverdue(ctx, r.now())
	if err != nil {
		if ctx.Err() == nil {
			r.log.ErrorContext(ctx, "overdue refresh failed", slog.Any("err", err))
		}
		return
	}
	if report.Flipped > 0 || report.Flagged > 0 {
		r.log.InfoContext(ctx, "overdue refresh",
			slog.Int("flipped", report.Flipped),
			slog.Int("flagged", report.Flagged))
	}
}
