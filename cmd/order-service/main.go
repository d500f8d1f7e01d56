package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"pos-sync/internal/collab"
	"pos-sync/internal/config"
	"pos-sync/internal/kafka"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.Path)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open sqlite: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to sqlite: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("sqlite open at %s", cfg.Database.Path))

	return bun.NewDB(sqldb, sqlitedialect.New())
}

func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to redis at %s: %v", cfg.Redis.Addr, err))
	}
	log.Info("REDIS", fmt.Sprintf("connected to %s", cfg.Redis.Addr))
	return client
}

// defaultFloorPlan seeds the tables on first boot.
func defaultFloorPlan() []models.Table {
	tbls := make([]models.Table, 0, 12)
	for i := 1; i <= 12; i++ {
		capacity := 4
		shape := "square"
		if i%3 == 0 {
			capacity = 6
			shape = "rectangle"
		}
		tbls = append(tbls, models.Table{
			Number:   i,
			FloorID:  "main",
			Capacity: capacity,
			Shape:    shape,
			Status:   models.TableAvailable,
			Position: models.Position{X: float64((i - 1) % 4 * 120), Y: float64((i - 1) / 4 * 120)},
		})
	}
	return tbls
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load("order-service")
	log := logger.NewLogger("order-service")
	defer log.Close()

	ctx := context.Background()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg, log)
	defer redisClient.Close()

	store := &collab.Store{Bun: bunDB}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}

	var publisher collab.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		publisher = producer
	}

	locks := &collab.Locks{Client: redisClient}
	service := collab.NewService(store, locks, publisher, log, cfg.Sync.TaxRate)
	if err := service.SeedTables(ctx, defaultFloorPlan()); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Table seeding failed: %v", err))
	}

	handler := &collab.Handler{Service: service, Log: log}

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
		log.Info("SERVER", fmt.Sprintf("Order service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Order service shutdown complete")
}
