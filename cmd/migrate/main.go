package main

import (
	"context"
	"time"

	"campuspark/internal/migrations/mongo"
	"campuspark/internal/payments/audit"
	"campuspark/pkg/config"
)

const JobName = "campuspark-migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.SetPostgres()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job")
	if err := mongo.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Mongo migration failed", "error", err)
	}

	if cfg.Client.Postgres != nil {
		if err := audit.Migrate(ctx, cfg.Client.Postgres); err != nil {
			cfg.GracefulShutdown()
			cfg.Log.Fatal("Postgres migration failed", "error", err)
		}
		cfg.Log.Info("Payment audit schema applied")
	}

	cfg.Log.Info("Migration completed successfully")
}
