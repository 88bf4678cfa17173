package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatstealth/server-go/internal/config"
	"github.com/chatstealth/server-go/internal/database"
	"github.com/chatstealth/server-go/internal/handler"
	"github.com/chatstealth/server-go/internal/jobs"
	"github.com/chatstealth/server-go/internal/middleware"
	"github.com/chatstealth/server-go/internal/model"
	"github.com/chatstealth/server-go/internal/payment"
	"github.com/chatstealth/server-go/internal/realtime"
	"github.com/chatstealth/server-go/internal/redis"
	"github.com/chatstealth/server-go/internal/repository"
	"github.com/chatstealth/server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	var limiter middleware.Limiter
	if cfg.RedisEnabled() {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
		limiter = middleware.NewRedisLimiter(redisClient.Client)
	} else {
		log.Info().Msg("REDIS_URL not set, using in-process rate limiter")
		limiter = middleware.NewMemoryLimiter()
	}

	registry := realtime.NewRegistry(config.BroadcastSendTimeout)
	presence := realtime.NewPresence()

	stripeProvider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.AppURL)

	sessionService := service.NewSessionService(store, registry, stripeProvider, cfg.UpgradeSecretCode)
	messageService := service.NewMessageService(store, registry, config.MessageListLimit)
	paymentService := service.NewPaymentService(stripeProvider, sessionService)

	gateway := realtime.NewGateway(sessionService, registry, presence, config.BroadcastSendTimeout)

	createLimit := middleware.NewIPRateLimitMiddleware(limiter, config.SessionCreateLimitPerMin, config.RateLimitWindow, "session-create")
	sendLimit := middleware.NewIPRateLimitMiddleware(limiter, config.MessageSendLimitPerMin, config.RateLimitWindow, "message-send")
	secretLimit := middleware.NewIPRateLimitMiddleware(limiter, config.SecretUpgradeAttemptsPerMin, config.RateLimitWindow, "secret-upgrade")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	statusHandler := handler.NewStatusHandler(registry, cfg.StripePublishableKey)
	sessionHandler := handler.NewSessionHandler(sessionService, messageService, handler.SessionLimits{
		Create:        createLimit.Handler,
		SecretUpgrade: secretLimit.Handler,
	})
	messageHandler := handler.NewMessageHandler(messageService, sendLimit.Handler)
	webhookHandler := handler.NewWebhookHandler(paymentService)
	wsHandler := handler.NewWebSocketHandler(gateway)
	eventsHandler := handler.NewEventsHandler(gateway)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/", statusHandler.Root)
	r.Get("/health", statusHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

		r.Get("/", statusHandler.API)
		r.Get("/config", statusHandler.Config)
		r.Mount("/sessions", sessionHandler.Routes())
		r.Mount("/messages", messageHandler.Routes())
		r.Post("/stripe/webhook", webhookHandler.ServeHTTP)
		r.Post("/webhook", webhookHandler.ServeHTTP)
	})

	r.Get("/ws/{session}", wsHandler.ServeHTTP)
	r.Get("/sse/{session}", eventsHandler.ServeHTTP)

	sweeper := jobs.NewExpirySweeper(store, cfg.SweepInterval())
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("store", string(cfg.Driver())).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	// Shutdown does not wait for hijacked websocket connections.
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Int("openChannels", registry.TotalChannels()).Msg("server stopped")
}

func openStore(cfg *config.Config) (*repository.Store, func()) {
	if cfg.Driver() == model.StoreDriverMemory {
		log.Warn().Msg("using in-memory store")
		return repository.NewMemoryStore(), func() {}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Msg("database connected")

	return repository.NewPostgresStore(db), func() { db.Close() }
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
