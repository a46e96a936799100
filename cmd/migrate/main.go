package main

import (
	"context"
	"time"

	mongoMigration "hotelbook/internal/migrations/mongo"
	"hotelbook/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	if err := cfg.SetMongo(); err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer cfg.GracefulShutdown(context.Background())

	cfg.Log.Info("Starting Mongo migration job")
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
