package service

import (
	"bitwise74/campus-finder/store"
	"context"
	"time"

	"go.uber.org/zap"
)

// ResetCleanup periodically clears reset codes and link tokens that have
// expired. It stops when ctx is cancelled
func ResetCleanup(ctx context.Context, t time.Duration, users store.UserStore) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Reset cleanup attached", zap.Duration("tick_every", t))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				clearExpiredResets(ctx, users, time.Now().UTC())
			}
		}
	}()
}

func clearExpiredResets(ctx context.Context, users store.UserStore, now time.Time) {
	n, err := users.ClearExpiredResets(ctx, now)
	if err != nil {
		zap.L().Error("Failed to clear expired reset codes", zap.Error(err))
		return
	}

	if n > 0 {
		zap.L().Debug("Cleared expired reset codes", zap.Int64("count", n))
	}
}
