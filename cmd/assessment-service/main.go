package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/healthpredictor/platform/pkg/assessment"
	"github.com/healthpredictor/platform/pkg/catalog"
	"github.com/healthpredictor/platform/pkg/common/config"
	"github.com/healthpredictor/platform/pkg/common/database"
	"github.com/healthpredictor/platform/pkg/common/kafka"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"github.com/healthpredictor/platform/pkg/dlp"
	"github.com/healthpredictor/platform/pkg/gateway/middleware"
	"github.com/healthpredictor/platform/pkg/insights"
	"github.com/healthpredictor/platform/pkg/observability/metrics"
	"github.com/healthpredictor/platform/pkg/patient"
	"github.com/healthpredictor/platform/pkg/report"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	logger.Init("assessment-service")
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	var catalogOpts []catalog.Option
	if cfg.DatabaseDriver == "postgres" {
		catalogOpts = append(catalogOpts, catalog.WithSnapshotIsolation())
	}
	catalogRepo := catalog.NewRepository(db, catalogOpts...)
	reportRepo := report.NewRepository(db)
	patientRepo := patient.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"catalog": catalogRepo.AutoMigrate,
		"report":  reportRepo.AutoMigrate,
		"patient": patientRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("store", name).Fatal("Failed to migrate tables")
		}
	}

	redisClient := database.OpenRedis(context.Background(), cfg)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.ReportEventsTopic)
	defer producer.Close()

	rules, err := dlp.LoadRules(cfg.RedactionRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load redaction rules")
	}
	redactor, err := dlp.NewRedactor(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile redaction rules")
	}

	provider := catalog.NewProvider(catalogRepo, redisClient, cfg.CatalogCacheTTL)
	reportService := report.NewService(report.NewAssembler(db), reportRepo, producer, report.WithRedactor(redactor))
	patientService := patient.NewService(patientRepo, reportService)
	assessmentService := assessment.NewService(provider, reportService, patientService, cfg.PersistAnonymous)
	dashboard := insights.NewService(patientRepo, reportRepo, catalogRepo, insights.NewAggregator(redisClient))

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", readiness(db, redisClient)).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	catalog.NewHandler(catalogRepo).Register(api)
	assessment.NewHandler(assessmentService).Register(api)
	report.NewHandler(reportService, report.NewExporter(catalogRepo, patientService)).Register(api)
	patient.NewHandler(patientService).Register(api)
	insights.NewHandler(dashboard).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":   cfg.ServerHost,
			"port":   cfg.ServerPort,
			"driver": cfg.DatabaseDriver,
		}).Info("Assessment Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Assessment Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Assessment Service stopped")
}

// readiness reports the database as required and Redis as optional.
func readiness(db *gorm.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "redis": "ok"}
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if err := cache.Ping(ctx).Err(); err != nil {
			status["redis"] = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
