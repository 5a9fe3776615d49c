package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/issuedesk/tracker/internal/api/handler"
	"github.com/issuedesk/tracker/internal/api/middleware"
	"github.com/issuedesk/tracker/internal/core/ports"
)

// Deps are the collaborators the router wires into handlers. Mongo and
// Redis may be nil when those stores are not configured.
type Deps struct {
	Accounts     ports.AccountService
	Tickets      ports.TicketService
	Sessions     *middleware.SessionCodec
	LoginLimiter *middleware.RateLimiter

	DB    *gorm.DB
	Mongo *mongo.Database
	Redis redis.UniversalClient

	AllowedOrigins []string
	Logger         zerolog.Logger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	log := deps.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     allowedOrigins(deps.AllowedOrigins),
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
		AllowCredentials: !allowsAnyOrigin(deps.AllowedOrigins),
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "tracker",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.DB, deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))

	// --- API ---
	accountHandler := handler.NewAccountHandler(deps.Accounts, deps.Sessions)
	ticketHandler := handler.NewTicketHandler(deps.Tickets)

	apiGroup := e.Group("/api", middleware.Authenticate(deps.Accounts, deps.Sessions, log))

	var throttle []echo.MiddlewareFunc
	if deps.LoginLimiter != nil {
		throttle = append(throttle, middleware.RateLimit(deps.LoginLimiter, log))
	}
	apiGroup.POST("/register", accountHandler.Register, throttle...)
	apiGroup.POST("/login", accountHandler.Login, throttle...)
	apiGroup.POST("/logout", accountHandler.Logout, middleware.RequirePrincipal())

	users := apiGroup.Group("/users", middleware.RequirePrincipal())
	users.GET("", accountHandler.List)
	users.GET("/me", accountHandler.Me)
	users.GET("/:id", accountHandler.Get)
	users.PATCH("/:id", accountHandler.Update)

	tickets := apiGroup.Group("/tickets")
	tickets.GET("", ticketHandler.List)
	tickets.POST("", ticketHandler.Create)
	tickets.GET("/mine", ticketHandler.Mine)
	tickets.GET("/:id", ticketHandler.Get)
	tickets.PUT("/:id", ticketHandler.Replace)
	tickets.PATCH("/:id", ticketHandler.Patch)
	tickets.DELETE("/:id", ticketHandler.Delete)
	tickets.POST("/:id/assign", ticketHandler.Assign)
	tickets.GET("/:id/activity", ticketHandler.Activity)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				event = log.Error().Err(v.Error)
			case v.Error != nil:
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range allowedOrigins(origins) {
		if o == "*" {
			return true
		}
	}
	return false
}
