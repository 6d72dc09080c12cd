package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"example.com/fitproof/internal/catalog"
	"example.com/fitproof/internal/clock"
	"example.com/fitproof/internal/config"
	"example.com/fitproof/internal/consumer"
	"example.com/fitproof/internal/logging"
	"example.com/fitproof/internal/outbox"
	"example.com/fitproof/internal/persistence/postgres"
	"example.com/fitproof/internal/points"
	"example.com/fitproof/internal/streak"
	"example.com/fitproof/internal/syncer"
)

func main() {
	cfg := config.Load()
	logging.Setup(logging.SetupParams{
		LogFileName:   cfg.LogFile,
		LogToStdout:   true,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("invalid timezone")
	}
	pointsCfg, err := config.LoadPointsConfig(cfg.PointsConfigPath)
	if err != nil {
		log.WithError(err).Fatal("invalid points config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	repo := postgres.NewRepository(pool)
	exercises := catalog.NewCache(repo, cfg.ExerciseCacheBytes, catalog.WithTTL(cfg.ExerciseCacheTTL))

	clk := clock.System{}
	svc := syncer.NewService(
		repo,
		exercises,
		points.NewCalculator(pointsCfg, clk, points.WithLocation(loc)),
		streak.NewTracker(clk, streak.WithLocation(loc)),
		clk,
		syncer.WithConcurrency(cfg.SyncConcurrency),
	)
	handler := consumer.NewSyncBatchHandler(svc, nil)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer func() {
		if err := producer.Close(); err != nil {
			log.WithError(err).Warn("producer close error")
		}
	}()
	dispatcher := outbox.NewDispatcher(outbox.NewPostgresStore(pool), producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.WithField("addr", cfg.MetricsAddress).Info("syncworker metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server error")
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			ReadLagInterval: -1,
		})
		proc := consumer.NewProcessor(reader, handler)

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			logger := log.WithFields(log.Fields{"topic": topic, "group": cfg.ConsumerGroupID})
			logger.Info("consumer started")
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("consumer stopped with error")
			}
		}(topic, reader)
	}

	<-stop
	log.Info("syncworker shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown error")
	}

	wg.Wait()
	dispatcher.Wait()
}
