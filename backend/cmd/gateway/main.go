package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gradesync/backend/internal/engine"
	"gradesync/backend/internal/gateway"
	"gradesync/backend/internal/shared"
	"gradesync/backend/internal/sources"
)

func main() {
	log.Println("INFO: Starting Grading Sync Gateway...")

	// 1. Load Configuration
	shared.LoadEnv("")
	config, err := shared.LoadGatewayConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if err := shared.ValidateGatewayConfig(config); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	shared.PrintGatewayConfig(config)

	// 2. Wire the Engine against the provider API
	client := sources.NewHTTPClient(&config.EngineConfig)
	eng := engine.New(client, &config.EngineConfig)

	// 3. Setup Routes and Middleware
	router := gateway.SetupRoutes(eng, config)

	// 4. Configure Server
	server := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Gateway listening on port %s", config.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Forced shutdown: %v", err)
	}
	log.Println("INFO: Gateway stopped.")
}
