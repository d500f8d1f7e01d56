package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"pos-sync/internal/api"
	"pos-sync/internal/config"
	"pos-sync/internal/kafka"
	"pos-sync/internal/lifecycle"
	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/orderapi"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load("pos-terminal")
	log := logger.NewLogger("pos-terminal")
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := livesync.NewStore()
	apiClient := orderapi.NewClient(cfg.Sync.OrderServiceURL, cfg.Sync.RequestTimeout)

	var source livesync.EventSource
	if cfg.Kafka.Enabled {
		source = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	}

	sync := livesync.NewClient(store, apiClient, source, log, cfg.Sync.RefreshInterval)
	sync.Start(ctx)

	actions := lifecycle.NewActions(store, apiClient, log, cfg.Sync.TaxRate)
	handler := &api.Handler{Store: store, Sync: sync, Actions: actions, Log: log}

	r := chi.NewRouter()
	r.Route("/api", handler.Routes)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("POS terminal on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "POS terminal shutdown complete")
}
