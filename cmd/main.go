package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/svanlaere/schaakclub-portal/calendar"
	"github.com/svanlaere/schaakclub-portal/config"
	"github.com/svanlaere/schaakclub-portal/db"
	"github.com/svanlaere/schaakclub-portal/handlers"
	"github.com/svanlaere/schaakclub-portal/live"
	"github.com/svanlaere/schaakclub-portal/repositories"
	api "github.com/svanlaere/schaakclub-portal/routes"
	"github.com/svanlaere/schaakclub-portal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Live schedule hub
	scheduleHub := live.NewHub()
	go scheduleHub.Run()

	// Репозитории
	txRunner := repositories.NewTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)

	// Collaborator adapters: club calendar and notification mail
	calendarClient := calendar.NewHTTPClient(calendar.HTTPClientConfig{
		BaseURL: cfg.CalendarAPIURL,
		Token:   cfg.CalendarAPIToken,
	})
	emailService := services.NewEmailService(cfg)

	// Сервисы
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey)
	roundService := services.NewRoundService(
		txRunner,
		tournamentRepo,
		roundRepo,
		gameRepo,
		calendarClient,
		scheduleHub,
		logger,
	)
	postponementService := services.NewPostponementService(
		txRunner,
		roundRepo,
		gameRepo,
		userRepo,
		emailService,
		scheduleHub,
		cfg.AdminEmail,
		logger,
	)
	logger.Info("services initialized")

	// HTTP handlers + router
	authHandler := handlers.NewAuthHandler(authService)
	roundHandler := handlers.NewRoundHandler(roundService, postponementService)
	webSocketHandler := handlers.NewWebSocketHandler(scheduleHub)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.AllowedOrigins, cfg.JWTSecretKey, authHandler, roundHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
