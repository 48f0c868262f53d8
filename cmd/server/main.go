package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/aula-ai-tutor-go/internal/handlers"
	"github.com/aula-ai-tutor-go/internal/i18n"
	"github.com/aula-ai-tutor-go/internal/middleware"
	"github.com/aula-ai-tutor-go/internal/services/ai"
	"github.com/aula-ai-tutor-go/internal/services/cache"
	"github.com/aula-ai-tutor-go/internal/services/session"
	"github.com/aula-ai-tutor-go/internal/services/students"
	"github.com/aula-ai-tutor-go/internal/services/video"
	"github.com/aula-ai-tutor-go/internal/tutor"
	"github.com/aula-ai-tutor-go/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting tutoring chat server...")

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Initialize provider client
	providerClient := ai.NewClient(&cfg.Provider, metrics, log)

	// Initialize response cache
	responseCache := cache.NewResponseCache(&cfg.Cache, metrics, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize session store
	sessionStore, err := session.NewStore(&cfg.Session, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize session store")
	}
	sessionManager := session.NewManager(sessionStore, log)

	// Initialize student store
	studentStore, err := students.NewStore(&cfg.Students, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize student store")
	}

	// Initialize video search
	videoService := video.NewService(cfg.YouTube.APIKey, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Wire the tutoring router
	generators := tutor.NewGenerators(providerClient, responseCache, rateLimiter, log)
	chatRouter := tutor.NewRouter(
		sessionManager,
		studentStore,
		generators,
		videoService,
		rateLimiter,
		responseCache,
		localizer,
		metrics,
		log,
	)

	authenticator := middleware.NewAuthenticator(cfg.Auth.JWTSecret)
	chatHandler := handlers.NewChatHandler(authenticator, chatRouter, localizer, log, cfg.Server.Production)

	// Setup HTTP routes
	router := mux.NewRouter()
	router.HandleFunc("/api/students/chat", chatHandler.Handle).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	if closer, ok := sessionStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Error("Failed to close session store")
		}
	}
	if closer, ok := studentStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Error("Failed to close student store")
		}
	}

	log.Info("Server stopped")
}
