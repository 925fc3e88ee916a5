package app

import (
	"context"
	"log/slog"
	"time"
)

// PixExpirer is the part of PixService the sweeper drives.
type PixExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpirySweeper periodically moves overdue pending PIX charges to expired.
type ExpirySweeper struct {
	expirer  PixExpirer
	interval time.Duration
	logger   *slog.Logger
}

func NewExpirySweeper(expirer PixExpirer, interval time.Duration, logger *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{expirer: expirer, interval: interval, logger: logger.With("component", "pix_expiry_sweeper")}
}

// Run blocks until ctx is cancelled. Sweep errors are logged and retried on the next tick.
func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "PIX expiry sweeper started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "PIX expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := w.expirer.ExpireOverdue(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "PIX expiry sweep failed", "error", err)
			}
		}
	}
}
