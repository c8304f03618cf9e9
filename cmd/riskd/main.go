package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/harvest-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/harvest-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/harvest-risk-service/internal/app"
	"github.com/couchcryptid/harvest-risk-service/internal/config"
	"github.com/couchcryptid/harvest-risk-service/internal/observability"
	"github.com/couchcryptid/harvest-risk-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	engine, err := app.NewEngine(cfg, clockwork.NewRealClock(), metrics, logger)
	if err != nil {
		logger.Error("failed to build assessment engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		ready  sharedobs.ReadinessChecker = engine
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		wg     sync.WaitGroup
	)

	// Batch assessment over Kafka (feature-flagged via KAFKA_ENABLED).
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(engine, cfg.KafkaAssessmentTopic, cfg.KafkaAlertTopic)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready = p

		wg.Go(func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		})
		logger.Info("kafka pipeline enabled",
			"request_topic", cfg.KafkaRequestTopic,
			"assessment_topic", cfg.KafkaAssessmentTopic,
			"alert_topic", cfg.KafkaAlertTopic,
		)
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, ready, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
