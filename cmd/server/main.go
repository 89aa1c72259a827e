package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/app"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/cache"
	"github.com/nekogravitycat/resort-booking-backend/internal/config"
	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/logging"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
)

// sweepBatch caps how many lapsed holds one sweep releases.
const sweepBatch = 100

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Connect DB
	var pool *pgxpool.Pool
	if cfg.StoreDriver == config.StoreDriverPostgres {
		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg.DBDSN); err != nil {
				log.Fatalf("failed to migrate db: %v", err)
			}
		}
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pool.Close()
	} else {
		log.Warn("running with the in-memory store; data is lost on exit")
	}

	// Redis
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Notifications
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.AMQPURL != "" {
		amqpNotifier := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyQueue, log)
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	// Payment gateway
	var gateway payment.Gateway
	switch cfg.PaymentGateway {
	case config.GatewayPayMongo:
		gateway = payment.NewPayMongoGateway(payment.PayMongoConfig{
			BaseURL:    cfg.PaymentAPIURL,
			SecretKey:  cfg.PaymentSecretKey,
			SuccessURL: cfg.PaymentSuccessURL,
			FailedURL:  cfg.PaymentFailedURL,
			Timeout:    cfg.PaymentTimeout,
		}, log)
	default:
		gateway = payment.NewSandboxGateway(false)
	}

	container := app.NewContainer(app.Config{
		IsProduction:         cfg.IsProduction,
		ProdOrigins:          cfg.ProdOrigins,
		DBPool:               pool,
		Redis:                redisClient,
		AvailabilityCacheTTL: cfg.AvailabilityCacheTTL,
		IdempotencyTTL:       cfg.IdempotencyTTL,
		Notifier:             notifier,
		Gateway:              gateway,
		JWTSecret:            cfg.JWTSecret,
		JWTTTL:               cfg.JWTAccessTokenTTL,
		HoldTTL:              cfg.HoldTTL,
		FeePerRoom:           cfg.ReservationFeePerRoom,
		MaxStayNights:        cfg.MaxStayNights,
		TxMaxAttempts:        cfg.TxMaxAttempts,
		TxBaseBackoff:        cfg.TxBaseBackoff,
		GatewayTimeout:       cfg.PaymentTimeout,
		WebhookSecret:        cfg.PaymentWebhookSecret,
		Log:                  log,
	})

	// Release lapsed holds in the background
	if cfg.HoldSweepInterval > 0 {
		go sweepExpiredHolds(ctx, container.Bookings, cfg.HoldSweepInterval, log)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		log.Infof("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("server exited gracefully")
}

func sweepExpiredHolds(ctx context.Context, bookings booking.Service, interval time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := bookings.ReleaseExpired(ctx, sweepBatch)
			if err != nil {
				log.WithError(err).Warn("hold sweep failed")
				continue
			}
			if released > 0 {
				log.WithField("released", released).Info("released expired holds")
			}
		}
	}
}
