package signingtokens

import (
	"context"
	"time"

	"esign-backend/internal/shared/telemetry"
)

// Sweeper periodically deletes expired token records. Backends with
// native expiry report zero deletions and the sweep is harmless.
type Sweeper struct {
	Service  *Service
	Interval time.Duration
}

// Run blocks until ctx is done, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Service.SweepExpired(ctx)
			if err != nil {
				telemetry.Warn("signingtokens.sweep_failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				telemetry.Info("signingtokens.swept", map[string]any{"deleted": n})
			}
		}
	}
}
