package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	"github.com/nekogravitycat/resort-booking-backend/internal/api"
	"github.com/nekogravitycat/resort-booking-backend/internal/audit"
	"github.com/nekogravitycat/resort-booking-backend/internal/auth"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	"github.com/nekogravitycat/resort-booking-backend/internal/cache"
	"github.com/nekogravitycat/resort-booking-backend/internal/db"
	"github.com/nekogravitycat/resort-booking-backend/internal/memstore"
	"github.com/nekogravitycat/resort-booking-backend/internal/notify"
	"github.com/nekogravitycat/resort-booking-backend/internal/payment"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	"github.com/nekogravitycat/resort-booking-backend/internal/stock"
	"github.com/nekogravitycat/resort-booking-backend/internal/uow"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	// DBPool selects the postgres store; nil runs everything in memory.
	DBPool *pgxpool.Pool
	// Redis is optional. Without it availability is not cached and
	// idempotency keys are ignored.
	Redis                *redis.Client
	AvailabilityCacheTTL time.Duration
	IdempotencyTTL       time.Duration

	Notifier notify.Notifier
	Gateway  payment.Gateway

	JWTSecret string
	JWTTTL    time.Duration

	HoldTTL        time.Duration
	FeePerRoom     int64
	MaxStayNights  int
	TxMaxAttempts  int
	TxBaseBackoff  time.Duration
	GatewayTimeout time.Duration
	WebhookSecret  string

	Log *logrus.Logger
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Bookings   booking.Service
}

// stores groups the repositories one backend provides.
type stores struct {
	tx           booking.TxRunner
	bookings     booking.Repository
	payments     payment.Repository
	rooms        room.Repository
	amenities    amenity.Repository
	stock        stock.Store
	availability availability.Source
	audit        audit.Recorder
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		tx:           uow.NewRunner(pool),
		bookings:     booking.NewPgxRepository(pool),
		payments:     payment.NewPgxRepository(pool),
		rooms:        room.NewPgxRepository(pool),
		amenities:    amenity.NewPgxRepository(pool),
		stock:        stock.NewPgxStore(pool),
		availability: availability.NewPgxSource(pool, false),
		audit:        audit.NewPgxRecorder(pool),
	}
}

func memoryStores(log logrus.FieldLogger) stores {
	s := memstore.New()
	return stores{
		tx:           s,
		bookings:     s.Bookings(),
		payments:     s.Payments(),
		rooms:        s.Rooms(),
		amenities:    s.Amenities(),
		stock:        s.Stock(),
		availability: s.Availability(),
		audit:        audit.NewLogRecorder(log),
	}
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var st stores
	if cfg.DBPool != nil {
		st = postgresStores(cfg.DBPool)
	} else {
		st = memoryStores(log)
	}

	// Interfaces stay nil when redis is absent.
	var availCache availability.Cache
	var invalidator booking.AvailabilityInvalidator
	var idem booking.IdempotencyStore
	if cfg.Redis != nil {
		c := cache.NewAvailabilityCache(cfg.Redis, cfg.AvailabilityCacheTTL)
		availCache, invalidator = c, c
		idem = cache.NewIdempotencyStore(cfg.Redis, cfg.IdempotencyTTL)
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	gateway := cfg.Gateway
	if gateway == nil {
		gateway = payment.NewSandboxGateway(false)
	}

	// Room Module
	roomService := room.NewService(st.rooms)

	// Amenity Module
	amenityService := amenity.NewService(st.amenities, st.stock, st.audit, log)

	// Availability Module
	availService := availability.NewService(st.availability, availCache, log)

	// Booking Module
	bookingService := booking.NewService(booking.Deps{
		Tx:       st.tx,
		Bookings: st.bookings,
		Payments: st.payments,
		Gateway:  gateway,
		Notifier: notifier,
		Audit:    st.audit,
		Cache:    invalidator,
		Idem:     idem,
		Retry: db.RetryPolicy{
			MaxAttempts: cfg.TxMaxAttempts,
			BaseBackoff: cfg.TxBaseBackoff,
		},
		Log:            log,
		HoldTTL:        cfg.HoldTTL,
		FeePerRoom:     cfg.FeePerRoom,
		MaxStayNights:  cfg.MaxStayNights,
		GatewayTimeout: cfg.GatewayTimeout,
	})

	// API Router Config
	routerParams := api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		RoomService:         roomService,
		AmenityService:      amenityService,
		AvailabilityService: availService,
		BookingService:      bookingService,
		JWTManager:          jwtManager,
		WebhookSecret:       cfg.WebhookSecret,
		Log:                 log,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Bookings:   bookingService,
	}
}
