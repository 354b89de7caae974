package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adlink-platform/internal/config"
	"adlink-platform/internal/database"
	"adlink-platform/internal/handlers"
	"adlink-platform/internal/jobs"
	"adlink-platform/internal/kafka"
	"adlink-platform/internal/logger"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/services"
	"adlink-platform/internal/tracking"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.SetupLogger("info", "json").WithError(err).Fatal("Invalid configuration")
	}

	// Setup logger
	log := logger.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	// db connection
	db, err := database.SetupDatabase(cfg.DatabaseURL, database.GormLogLevel(cfg.LogLevel))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// feed db with sample data
	if cfg.SeedDatabase {
		if err := database.SeedDatabase(ctx, db); err != nil {
			log.WithError(err).Warn("Failed to seed database")
		}
	}

	opts := handlers.Options{
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
		SettingsTTL: cfg.SettingsCacheTTL,
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic), kafka.DefaultBreakerConfig(), log)
		defer func() {
			if err := producer.Close(); err != nil {
				log.WithError(err).Error("Failed to close Kafka producer")
			}
		}()
		var publisher tracking.EventPublisher = producer
		opts.Publisher = publisher

		consumer := kafka.NewConsumer(kafka.NewKafkaReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID), log)
		defer func() {
			if err := consumer.Close(); err != nil {
				log.WithError(err).Error("Failed to close Kafka consumer")
			}
		}()

		// Start rollup processor
		queue := services.NewRollupQueue(repository.NewAnalyticsRepository(db, log), log, cfg.RollupBuffer)
		go queue.StartProcessor(ctx)
		go queue.Consume(ctx, consumer)

		log.WithFields(logrus.Fields{
			"broker": cfg.KafkaBroker,
			"topic":  cfg.KafkaTopic,
		}).Info("Event mirroring enabled")
	}

	server := handlers.NewServer(db, log, opts)

	job := jobs.NewSuggestionJob(server.Settings(), server.Refresher(), log, cfg.SuggestInterval, cfg.SuggestLimit)
	go job.Start(ctx)

	// Setup Gin router
	switch cfg.GinMode {
	case gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.WithField("port", cfg.Port).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	server.Shutdown()

	log.Info("Server exited")
}
