package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/api"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/config"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/kafka"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	redisCache "github.com/aksiooma/trailbuddy-app-sub000/internal/redis"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/repository"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/service"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/snapshot"
	"github.com/aksiooma/trailbuddy-app-sub000/migrations"
)

// setupLogging configures structured logging
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		log.Logger = log.With().Str("service", cfg.ServiceName).Str("instance", cfg.InstanceID).Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// initializeDatabase connects to Postgres and applies pending migrations
func initializeDatabase(ctx context.Context, cfg *config.Config) *sqlx.DB {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxIdleTime(30 * time.Second)

	if cfg.RunMigrations {
		if err := migrations.Up(ctx, db.DB); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	log.Info().Int("max_conns", cfg.DatabaseMaxConns).Msg("Database connection established")
	return db
}

// initializeCatalog connects to MongoDB and seeds the catalog when a seed file is configured
func initializeCatalog(ctx context.Context, cfg *config.Config) (*mongo.Client, *repository.CatalogRepository) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		if derr := client.Disconnect(ctx); derr != nil {
			log.Warn().Err(derr).Msg("Failed to disconnect from MongoDB")
		}
		log.Fatal().Err(err).Msg("Failed to ping MongoDB")
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("MongoDB connection established")

	repo := repository.NewCatalogRepository(client, cfg.MongoDatabase)
	if cfg.CatalogSeedFile != "" {
		if err := seedCatalog(ctx, repo, cfg.CatalogSeedFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.CatalogSeedFile).Msg("Failed to seed catalog")
		}
	}
	return client, repo
}

func seedCatalog(ctx context.Context, repo *repository.CatalogRepository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var bikes []models.BikeCatalogEntry
	if err := json.Unmarshal(data, &bikes); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	for _, bike := range bikes {
		if err := repo.UpsertBike(ctx, bike); err != nil {
			return err
		}
	}
	log.Info().Int("bikes", len(bikes)).Msg("Catalog seeded")
	return nil
}

// initializeCache sets up the Redis basket cache
func initializeCache(ctx context.Context, cfg *config.Config) *redisCache.CacheClient {
	cache := redisCache.NewCacheClient(
		cfg.RedisAddrs,
		cfg.RedisPassword,
		cfg.RedisClusterMode,
		cfg.RedisPoolSize,
		cfg.BasketTTL,
		cfg.RedisKeyPrefix,
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// baskets still work in memory without Redis
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, baskets will not survive restarts")
	} else {
		log.Info().Msg("Redis connection established")
	}
	return cache
}

// startHTTPServer starts the HTTP server
func startHTTPServer(cfg *config.Config, svc *service.BookingService) *http.Server {
	router := api.NewBookingHandler(svc).SetupRoutes()
	serverAddr := fmt.Sprintf("%s:%s", cfg.ServerAddr, cfg.ServerPort)

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Msg("Booking HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	return server
}

// gracefulShutdown waits for a signal, then stops the server and background workers
func gracefulShutdown(cancel context.CancelFunc, server *http.Server, workers *sync.WaitGroup) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down booking service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	workers.Wait()
	log.Info().Msg("Booking service stopped")
}

func main() {
	cfg := config.LoadConfig()
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("environment", cfg.Environment).Msg("Starting booking service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := initializeDatabase(ctx, cfg)
	defer db.Close()

	mongoClient, catalogRepo := initializeCatalog(ctx, cfg)
	defer func() {
		disconnectCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	cache := initializeCache(ctx, cfg)
	defer cache.Close()

	reservationRepo := repository.NewReservationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	hub := snapshot.NewHub()
	loader := snapshot.NewLoader(reservationRepo, hub, cfg.Location())
	if err := loader.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load initial reservation snapshot")
	}

	svc, err := service.NewBookingService(ctx, catalogRepo, reservationRepo, cache, hub, session.NewManager(), service.ServiceConfig{
		HorizonDays:       cfg.HorizonDays,
		PublicHorizonDays: cfg.PublicHorizonDays,
		DebounceWait:      cfg.DebounceWait,
		BasketTTL:         cfg.BasketTTL,
		MaxQuantity:       cfg.MaxBasketQuantity,
		Location:          cfg.Location(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start booking service")
	}
	defer svc.Close()

	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
	defer publisher.Close()

	// every instance gets its own group so each one sees every event
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup+"-"+cfg.InstanceID, cfg.KafkaEventsTopic)
	defer consumer.Close()

	var workers sync.WaitGroup
	workers.Add(3)
	go func() {
		defer workers.Done()
		publisher.RunOutboxPublisher(ctx, outboxRepo, kafka.OutboxConfig{
			LockKey:      cfg.OutboxLockKey,
			BatchSize:    cfg.OutboxBatchSize,
			PollInterval: cfg.OutboxPollInterval,
		})
	}()
	go func() {
		defer workers.Done()
		if err := consumer.ConsumeEvents(ctx, loader); err != nil {
			log.Error().Err(err).Msg("Reservation event consumption stopped")
		}
	}()
	go func() {
		defer workers.Done()
		loader.Run(ctx, cfg.ResyncInterval)
	}()

	server := startHTTPServer(cfg, svc)
	log.Info().Msg("Booking service started")

	gracefulShutdown(cancel, server, &workers)
}
