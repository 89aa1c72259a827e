package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/resort-booking-backend/internal/amenity"
	amenityHttp "github.com/nekogravitycat/resort-booking-backend/internal/amenity/http"
	"github.com/nekogravitycat/resort-booking-backend/internal/auth"
	"github.com/nekogravitycat/resort-booking-backend/internal/availability"
	"github.com/nekogravitycat/resort-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/resort-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/resort-booking-backend/internal/room"
	roomHttp "github.com/nekogravitycat/resort-booking-backend/internal/room/http"
)

// Config holds the services the router exposes.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	RoomService         room.Service
	AmenityService      amenity.Service
	AvailabilityService availability.Service
	BookingService      booking.Service
	JWTManager          *auth.JWTManager
	WebhookSecret       string
	Log                 *logrus.Logger
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Request lines go through the application logger's output.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	logger := gin.Logger()
	if cfg.Log != nil {
		logger = gin.LoggerWithWriter(cfg.Log.Writer())
	}
	r.Use(logger, gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:8081", // Swagger
	}
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		config.AllowOrigins = strings.Split(cfg.ProdOrigins, ",")
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", bookingHttp.IdempotencyHeader, bookingHttp.WebhookSecretHeader}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// staffMiddleware / adminMiddleware: Role checks on top of authMiddleware.
	staffMiddleware := auth.RequireRole(auth.RoleStaff)
	adminMiddleware := auth.RequireRole(auth.RoleAdmin)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	roomHandler := roomHttp.NewHandler(cfg.RoomService, cfg.AvailabilityService)
	amenityHandler := amenityHttp.NewHandler(cfg.AmenityService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.WebhookSecret)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware, staffMiddleware, adminMiddleware)
		amenityHttp.RegisterRoutes(v1, amenityHandler, authMiddleware, staffMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, staffMiddleware)
	}

	return r
}
