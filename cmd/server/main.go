package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/Daddada866/TrenchBot/internal/auth"
	"github.com/Daddada866/TrenchBot/internal/command"
	"github.com/Daddada866/TrenchBot/internal/config"
	"github.com/Daddada866/TrenchBot/internal/database"
	"github.com/Daddada866/TrenchBot/internal/engine"
	"github.com/Daddada866/TrenchBot/internal/ledger"
	"github.com/Daddada866/TrenchBot/internal/metrics"
	"github.com/Daddada866/TrenchBot/internal/pricing"
	"github.com/Daddada866/TrenchBot/internal/ratelimit"
	"github.com/Daddada866/TrenchBot/internal/snapshot"
	"github.com/Daddada866/TrenchBot/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the simulated trading engine with graceful
// shutdown support. It sets up all required services, the snapshot database,
// and API routes
func main() {
	cfg := config.Load()

	// Initialize snapshot database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	prices := pricing.NewSource()
	gate := ratelimit.NewSlidingWindow(cfg.RateLimitPerMin)

	tradingEngine := engine.New(prices, ledger.New(), gate, engine.Config{
		DefaultPair:      cfg.DefaultPair,
		MaxOrdersPerUser: cfg.MaxOrdersPerUser,
		MaxSlippageBps:   cfg.MaxSlippageBps,
	})
	engineHandlers := engine.NewGinHandlers(tradingEngine)

	dispatcher := command.NewDispatcher(tradingEngine, cfg.DefaultPair, cfg.TrenchersNFT)
	commandHandlers := command.NewGinHandlers(dispatcher)

	codec := snapshot.NewCodec(tradingEngine)
	store := snapshot.NewStore(db)
	snapshotHandlers := snapshot.NewGinHandlers(codec, store)

	// Restore the most recent snapshot if one exists
	if doc, err := store.LoadLatest(); err != nil {
		zlog.Error().Err(err).Msg("failed to load latest snapshot")
	} else if doc != nil {
		if err := codec.Import(doc); err != nil {
			zlog.Error().Err(err).Msg("failed to import latest snapshot")
		}
	}

	// Create and start the limit order sweep processor
	sweepProcessor := engine.NewSweepProcessor(tradingEngine, cfg.SweepInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go sweepProcessor.Start(processorCtx)

	// Setup metrics
	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	// Setup middleware
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, registry, authService, authHandlers, engineHandlers, commandHandlers, snapshotHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Persist a final snapshot before exit (best effort)
	if _, err := store.Save(codec.Export()); err != nil {
		zlog.Error().Err(err).Msg("failed to persist final snapshot")
	}

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - User routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	registry *prometheus.Registry,
	authService *auth.Service,
	authHandlers *auth.GinHandlers,
	engineHandlers *engine.GinHandlers,
	commandHandlers *command.GinHandlers,
	snapshotHandlers *snapshot.GinHandlers,
) {
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// User routes
		user := v1.Group("")
		user.Use(middleware.JWTAuth(authService))
		{
			user.GET("/price/*pair", engineHandlers.GetPriceHandler())
			user.GET("/pairs", engineHandlers.ListPairsHandler())
			user.POST("/orders", engineHandlers.PlaceOrderHandler())
			user.GET("/orders", engineHandlers.ListOrdersHandler())
			user.DELETE("/orders/:order_id", engineHandlers.CancelOrderHandler())
			user.GET("/positions", engineHandlers.PositionsHandler())
			user.GET("/balance", engineHandlers.BalanceHandler())
			user.POST("/command", commandHandlers.DispatchHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(authService))
		{
			internal.POST("/price", engineHandlers.SetPriceHandler())
			internal.POST("/sweep", engineHandlers.SweepHandler())
			internal.GET("/stats", engineHandlers.StatsHandler())
			internal.POST("/snapshot", snapshotHandlers.ExportHandler())
			internal.POST("/snapshot/restore", snapshotHandlers.RestoreHandler())
		}
	}
}
