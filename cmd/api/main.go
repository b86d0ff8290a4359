package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduling-platform/internal/api/router"
	"github.com/wolfman30/clinic-scheduling-platform/internal/booking"
	appconfig "github.com/wolfman30/clinic-scheduling-platform/internal/config"
	"github.com/wolfman30/clinic-scheduling-platform/internal/consultation"
	"github.com/wolfman30/clinic-scheduling-platform/internal/doctors"
	"github.com/wolfman30/clinic-scheduling-platform/internal/events"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger.Info("starting clinic-scheduling-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	redisClient := connectRedis(cfg, logger)

	registry, schedulingMetrics := setupMetrics()

	var (
		bookingRepo      booking.Repository
		consultationRepo consultation.Repository
		outbox           *events.OutboxStore
	)
	if pool != nil {
		bookingRepo = booking.NewPostgresRepository(pool)
		consultationRepo = consultation.NewPostgresRepository(pool)
		outbox = events.NewOutboxStore(pool)
	} else {
		logger.Warn("no database configured, using in-memory repositories")
		bookingRepo = booking.NewInMemoryRepository()
		consultationRepo = consultation.NewInMemoryRepository()
	}

	var hoursStore *doctors.Store
	var slotCache booking.SlotCache
	if redisClient != nil {
		hoursStore = doctors.NewStore(redisClient)
		slotCache = booking.NewRedisSlotCache(redisClient, cfg.SlotCacheTTL, logger)
	}

	bookingSvc := booking.NewService(bookingRepo, hoursProvider(hoursStore), booking.Options{
		SlotMinutes:                cfg.DefaultSlotMinutes,
		AllowCompleteFromConfirmed: cfg.AllowCompleteConfirmed,
	}, logger).WithMetrics(schedulingMetrics)
	if slotCache != nil {
		bookingSvc.WithCache(slotCache)
	}
	if outbox != nil {
		bookingSvc.WithEvents(outbox)
	}

	consultationSvc := consultation.NewService(consultationRepo, cfg.InvitationTokenTTL, logger).
		WithMetrics(schedulingMetrics)
	if outbox != nil {
		consultationSvc.WithEvents(outbox)
	}

	var doctorsHandler *doctors.Handler
	if hoursStore != nil {
		doctorsHandler = doctors.NewHandler(hoursStore, logger)
	}

	r := router.New(&router.Config{
		Logger:              logger,
		BookingHandler:      booking.NewHandler(bookingSvc, logger),
		ConsultationHandler: consultation.NewHandler(consultationSvc, logger),
		DoctorsHandler:      doctorsHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthSecret:          cfg.AuthJWTSecret,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	if outbox != nil {
		handler := setupDeliveryHandler(ctx, cfg, logger)
		deliverer := events.NewDeliverer(outbox, handler, logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
		go deliverer.Start(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("server stopped")
}

// hoursProvider adapts a possibly-nil store; the planner falls back to the
// default nine-to-five week without one.
func hoursProvider(store *doctors.Store) booking.HoursProvider {
	if store == nil {
		return nil
	}
	return store
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

func connectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, slot cache and hours disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func setupMetrics() (*prometheus.Registry, *metrics.SchedulingMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, metrics.NewSchedulingMetrics(registry)
}

func setupDeliveryHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) events.DeliveryHandler {
	if cfg.EventsQueueURL == "" {
		return events.LogHandler{Logger: logger}
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		logger.Error("failed to load AWS config, falling back to log delivery", "error", err)
		return events.LogHandler{Logger: logger}
	}
	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
		}
	})
	return events.NewSQSHandler(client, cfg.EventsQueueURL)
}
