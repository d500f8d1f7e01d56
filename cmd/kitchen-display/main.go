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
	"pos-sync/internal/kitchen"
	"pos-sync/internal/lifecycle"
	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/orderapi"
	"pos-sync/internal/sse"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load("kitchen-display")
	log := logger.NewLogger("kitchen-display")
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

	emitter := sse.NewEmitter()

	// Every cache change pushes a fresh ticket board to connected displays.
	snapshots := store.Subscribe()
	go func() {
		for snap := range snapshots {
			emitter.Broadcast(kitchen.StreamKitchen, sse.Message{
				Event: "tickets",
				Data:  kitchen.Tickets(snap.Orders, time.Now()),
			})
			emitter.Broadcast(kitchen.StreamKitchen, sse.Message{
				Event: "mise-en-place",
				Data:  kitchen.Ranked(kitchen.Aggregate(snap.Orders)),
			})
		}
	}()

	// New-order alerts ride the same stream. The initial refresh ran before
	// anyone subscribed, so prime the notifier with the current snapshot;
	// otherwise the first order after startup would become its baseline.
	notifier := kitchen.NewNotifier(func(newOrders int) {
		log.LogAlert(fmt.Sprintf("%d new order(s) arrived", newOrders))
		emitter.Broadcast(kitchen.StreamKitchen, sse.Message{
			Event: "new-order",
			Data:  map[string]int{"count": newOrders},
		})
	})
	notifier.Observe(store.Snapshot())
	go notifier.Watch(store.Subscribe())

	// Urgency tiers move with the clock even when no event arrives.
	go kitchen.Tick(ctx, cfg.Sync.UrgencyTick, func(now time.Time) {
		snap := store.Snapshot()
		emitter.Broadcast(kitchen.StreamKitchen, sse.Message{
			Event: "tickets",
			Data:  kitchen.Tickets(snap.Orders, now),
		})
	})

	actions := lifecycle.NewActions(store, apiClient, log, cfg.Sync.TaxRate)
	shared := &api.Handler{Store: store, Sync: sync, Actions: actions, Log: log}
	board := &kitchen.Handler{Store: store, Emitter: emitter, Log: log}

	r := chi.NewRouter()
	r.Route("/api", shared.Routes)
	r.Route("/kitchen", board.Routes)

	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		// No write timeout: /kitchen/events holds SSE connections open.
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Kitchen display on %s", cfg.Server.Port))
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
	log.Info("SERVER", "Kitchen display shutdown complete")
}
