package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esign-backend/internal/audit"
	"esign-backend/internal/bootstrap"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/server"
	"esign-backend/internal/shared/telemetry"
	"esign-backend/internal/signingtokens"
)

const auditPurgeInterval = 24 * time.Hour

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := &signingtokens.Sweeper{Service: app.Tokens, Interval: cfg.SweepInterval}
	go sweeper.Run(ctx)
	go purgeAuditLogs(ctx, app.AuditRecorder)

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// purgeAuditLogs drops audit entries past their retention window once a day.
func purgeAuditLogs(ctx context.Context, recorder *audit.Recorder) {
	ticker := time.NewTicker(auditPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := recorder.PurgeExpired(ctx)
			if err != nil {
				telemetry.Warn("audit.purge_failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				telemetry.Info("audit.purged", map[string]any{"deleted": n})
			}
		}
	}
}
