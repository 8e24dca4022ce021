// File: cmd/server/main.go
package main

import (
	"context"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"catalog_hierarchy_backend/internal/config"
	platformcache "catalog_hierarchy_backend/internal/platform/cache"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// provideCache wires the Cache port. The cache is an accelerator only, so a
// missing Redis is a degraded start, not a fatal one: the service falls back
// to an in-process cache and stays correct from the database.
func provideCache(cfg *config.Config, logger *zap.Logger) (platformcache.Cache, func()) {
	client, err := platformcache.NewRedisClient(cfg, logger)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		return platformcache.NewMemoryCache(), func() {}
	}
	return platformcache.NewRedisCache(client), func() {
		platformcache.CloseRedisClient(client)
	}
}
