package main

import (
	"context"
	"flag"
	"time"

	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/config"
	"github.com/healthpredictor/platform/pkg/common/database"
	"github.com/healthpredictor/platform/pkg/common/logger"
)

func main() {
	logger.Init("seed")
	cfg := config.Load()

	path := flag.String("file", cfg.CatalogSeedPath, "catalog YAML file; empty loads the built-in catalog")
	flag.Parse()

	seed, err := catalog.LoadSeed(*path)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load catalog seed")
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	repo := catalog.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate catalog tables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := repo.Upsert(ctx, seed)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to seed catalog")
	}

	redisClient := database.OpenRedis(ctx, cfg)
	defer redisClient.Close()
	if err := catalog.NewProvider(repo, redisClient, cfg.CatalogCacheTTL).Invalidate(ctx); err != nil {
		logger.Log.WithError(err).Warn("Failed to invalidate cached catalog; it expires on its own")
	}

	logger.Log.WithFields(map[string]interface{}{
		"source":     sourceName(*path),
		"symptoms":   result.Symptoms,
		"diseases":   result.Diseases,
		"remedies":   result.Remedies,
		"links":      result.Links,
		"unresolved": len(result.Unresolved),
	}).Info("Catalog seeded")
}

func sourceName(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
