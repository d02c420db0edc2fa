package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"fmt"
	"log"

	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/storage/db"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}

func run() error {
	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	return db.RunMigrations(ctx, sqlDB)
}
