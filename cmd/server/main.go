// cmd/server/main.go
// This is the main entry point for the gateway process. It initializes
// configuration and starts the HTTP/WebSocket server.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leoherzog/seedless-sub001/internal/config"
	"github.com/leoherzog/seedless-sub001/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg.Environment)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize server: %v", err)
	}

	go func() {
		logger.Printf("Starting server on port %s in %s mode", cfg.Server.Port, cfg.Environment)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	gracefulShutdown(srv, logger)
}

// setupLogger configures structured logging based on the environment.
func setupLogger(env string) *log.Logger {
	logger := log.New(os.Stdout, "[seedless] ", log.LstdFlags|log.Lshortfile)

	if env == "production" {
		// TODO: swap for structured JSON output once a log aggregator is in place.
	}

	return logger
}

// gracefulShutdown handles graceful shutdown of the server.
func gracefulShutdown(srv *server.Server, logger *log.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server exited")
}
