// internal/server/server.go
// HTTP/WebSocket gateway setup with dependency injection

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/config"
	"github.com/leoherzog/seedless-sub001/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server is the gateway process: a gin router fronting one WebSocket
// upgrade endpoint per spec.md §6, with every room's replicas gossiping
// through an in-process peerchannel.WebSocketHub rather than a relational
// or message-broker backend (there is no server-side tournament business
// logic left to route REST verbs to; internal/room owns all of it).
type Server struct {
	config  *config.Config
	router  *gin.Engine
	gateway *Gateway
	logger  *log.Logger
	server  *http.Server
}

// New creates a new gateway server with all dependencies wired.
func New(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gateway, err := NewGateway(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("server: gateway init: %w", err)
	}

	router := setupRouter(cfg, gateway, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{config: cfg, router: router, gateway: gateway, logger: logger, server: srv}, nil
}

// setupRouter configures all routes and middleware.
func setupRouter(cfg *config.Config, gw *Gateway, logger *log.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Server.MaintenanceMode {
		router.Use(middleware.MaintenanceMode())
	}

	router.GET("/health", gw.HealthCheck)
	router.GET("/ws", middleware.RateLimiter(gw.kv, 120, time.Minute), gw.HandleWebSocket)

	return router
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("server: shutting down")
	s.gateway.Shutdown()
	return s.server.Shutdown(ctx)
}
