package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/medvoa-backend/internal/adapter/handler/http"
	"github.com/wekeepgrowing/medvoa-backend/internal/config"
	"github.com/wekeepgrowing/medvoa-backend/internal/middleware/auth"
	"github.com/wekeepgrowing/medvoa-backend/pkg/logger"
	"go.uber.org/zap"
)

// corsAllowHeaders are the request headers browsers and Stripe send
var corsAllowHeaders = strings.Join([]string{
	"authorization",
	"x-client-info",
	"apikey",
	"content-type",
	"stripe-signature",
}, ", ")

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies are the use cases the HTTP surface exposes
type Dependencies struct {
	Query        handlers.SubscriptionReader
	Entitlements handlers.EntitlementReader
	Processor    handlers.EventProcessor
	HealthChecks map[string]HealthCheck
}

type Server struct {
	config *config.Config
	logger *zap.Logger
	echo   *echo.Echo
	deps   Dependencies
}

func NewServer(cfg *config.Config, log *zap.Logger, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	logger.WithEchoLogger(e, log)

	// Middleware
	e.Pre(corsMiddleware())
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())

	s := &Server{
		config: cfg,
		logger: log,
		echo:   e,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Address()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// corsMiddleware allows any origin and answers every pre-flight with an
// empty 200, before routing so unknown paths pre-flight too
func corsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

func (s *Server) health(c echo.Context) error {
	failed := map[string]string{}
	for name, check := range s.deps.HealthChecks {
		if err := check(c.Request().Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":  "unhealthy",
			"service": s.config.Service.Name,
			"failed":  failed,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.config.Service.Name,
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.health)

	// Initialize handlers
	subscriptionHandler := handlers.NewSubscriptionHandler(s.logger, s.deps.Query, s.deps.Entitlements)
	usageHandler := handlers.NewUsageHandler(s.logger, s.deps.Entitlements)
	webhookHandler := handlers.NewWebhookHandler(s.logger, s.deps.Processor)

	// Webhook route, authenticated by its signature
	s.echo.POST("/stripe-webhook", webhookHandler.HandleWebhook)

	// Protected routes (require JWT authentication)
	requireAuth := auth.JWTMiddleware(auth.JWTConfig{
		Secret: s.config.Service.Supabase.JWTSecret,
		Logger: s.logger,
	})

	s.echo.POST("/check-subscription", subscriptionHandler.CheckSubscription, requireAuth)
	s.echo.GET("/me", subscriptionHandler.Me, requireAuth)
	s.echo.GET("/me/entitlements", subscriptionHandler.Entitlements, requireAuth)

	// Advisory usage counters
	s.echo.GET("/me/usage", usageHandler.List, requireAuth)
	s.echo.GET("/me/usage/:feature/:window", usageHandler.Get, requireAuth)
	s.echo.POST("/me/usage/:feature/:window", usageHandler.Consume, requireAuth)
}
