package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Mode {
	case ModeBot:
		if err := RunBot(ctx, cfg); err != nil && err != context.Canceled {
			log.Fatalf("bot: %v", err)
		}
	default:
		runRelay(ctx, cfg)
	}
}

func runRelay(ctx context.Context, cfg Config) {
	relay := NewRelay(NewSystemClock(), cfg.MaxRooms)
	hub := NewHub(relay)
	done := make(chan struct{})
	go hub.Run(done)

	mux := SetupRoutes(hub)
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Printf("Relay starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	close(done)
}
