package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/config"
	"github.com/imobiai/leadqual-server-go/internal/database"
	"github.com/imobiai/leadqual-server-go/internal/genai"
	"github.com/imobiai/leadqual-server-go/internal/handler"
	"github.com/imobiai/leadqual-server-go/internal/jobs"
	"github.com/imobiai/leadqual-server-go/internal/middleware"
	"github.com/imobiai/leadqual-server-go/internal/redis"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/service"
	"github.com/imobiai/leadqual-server-go/internal/sessionstore"
	"github.com/imobiai/leadqual-server-go/internal/sse"
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
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRecordRepo := repository.NewSessionRecordRepository(db.DB)
	connRepo := repository.NewConnectionRepository(db.DB)
	convRepo := repository.NewConversationRepository(db.DB)
	msgRepo := repository.NewMessageRepository(db.DB)
	profileRepo := repository.NewLeadProfileRepository(db.DB)
	authSessionRepo := repository.NewAuthSessionRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	var generator genai.Generator
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, ai generation is disabled")
		generator = genai.Disabled{}
	} else {
		client, err := genai.NewClient(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize gemini client")
		}
		defer client.Close()
		generator = client
	}

	sessionStore := sessionstore.NewRedisStore(redisClient)

	authService := service.NewAuthService(authSessionRepo, cfg)
	ownerUID := authService.OperatorUID()

	pairingService := service.NewPairingService(sessionStore, sessionRecordRepo, connRepo, broker, cfg)
	defer pairingService.Close()
	connectionService := service.NewConnectionService(connRepo, broker, cfg)
	responderService := service.NewResponderService(msgRepo, convRepo, profileRepo, generator, broker, cfg, ownerUID)
	conversationService := service.NewConversationService(db, convRepo, msgRepo, profileRepo, responderService, broker, ownerUID)
	analyticsService := service.NewAnalyticsService(convRepo, msgRepo, generator)

	authMiddleware := middleware.NewAuthMiddleware(authSessionRepo)
	loginLimitMiddleware := middleware.NewLoginRateLimitMiddleware(
		redisClient.Client, config.LoginRateLimit, config.LoginRateWindow,
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(authService)
	whatsappHandler := handler.NewWhatsAppHandler(pairingService, connectionService)
	inboxHandler := handler.NewInboxHandler(conversationService, responderService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	eventsHandler := handler.NewEventsHandler(broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(loginLimitMiddleware.Handler)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/events", eventsHandler.ServeHTTP)
			r.Mount("/whatsapp", whatsappHandler.Routes())
			r.Mount("/conversations", inboxHandler.Routes())
			r.Mount("/analytics", analyticsHandler.Routes())
		})
	})

	cleanupJob := jobs.NewCleanupJob(authSessionRepo, sessionRecordRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// SSE connections stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
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

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
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
