package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/healthpredictor/platform/pkg/common/config"
	"github.com/healthpredictor/platform/pkg/common/database"
	"github.com/healthpredictor/platform/pkg/common/kafka"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/insights"
)

func main() {
	logger.Init("insights-worker")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := database.OpenRedis(ctx, cfg)
	defer redisClient.Close()

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ReportEventsTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	aggregator := insights.NewAggregator(redisClient)

	logger.Log.WithFields(map[string]interface{}{
		"topic":    cfg.ReportEventsTopic,
		"group_id": cfg.KafkaGroupID,
	}).Info("Insights Worker started")

	if err := consumer.Consume(ctx, aggregator.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("Consumer stopped")
	}

	logger.Log.Info("Insights Worker stopped")
}
