package container

import (
	"context"
	"time"
)

const idleReaperInterval = time.Minute

// StartIdleReaper runs a background goroutine that removes the sandbox once
// it has been idle for ttl. The next command recreates it.
func StartIdleReaper(ctx context.Context, r *SandboxRunner, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := idleReaperInterval
	if ttl < interval {
		interval = ttl
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		r.logger.Info("Sandbox idle reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				reapIdle(ctx, r, ttl)
			case <-ctx.Done():
				r.logger.Info("Sandbox idle reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func reapIdle(ctx context.Context, r *SandboxRunner, ttl time.Duration) {
	removed, err := r.Reap(ctx, ttl)
	if err != nil {
		r.logger.Error("Idle reaper failed to remove sandbox", "error", err)
		return
	}
	if removed {
		r.logger.Info("Idle reaper removed sandbox", "ttl", ttl)
	}
}
