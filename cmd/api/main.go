package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatehouse/internal/auth"
	"gatehouse/internal/background"
	"gatehouse/internal/config"
	"gatehouse/internal/database"
	"gatehouse/internal/handlers"
	middlewareCustom "gatehouse/internal/middleware"
	"gatehouse/internal/repositories"
	"gatehouse/internal/routes"
	"gatehouse/internal/services"
	pkglogger "gatehouse/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	identityRepo := repositories.NewIdentityRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	tokenRepo := repositories.NewResetTokenRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(attemptRepo, tokenRepo, logger, cfg.Session.CleanupInterval)

	// Session binding
	sessionManager := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TokenExpiry)
	cookieConfig := auth.CookieConfig{
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
	}

	// Audit logging
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Lockout policy with settings fixed at startup
	policy := services.NewLockoutPolicy()
	configSource := services.StaticConfig{Lockout: cfg.Lockout}

	// AWS SES mailer
	mailer, err := services.NewAWSSESMailer(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(
		identityRepo,
		attemptRepo,
		policy,
		configSource,
		services.SystemClock(),
		logger,
		auditLogger,
	)
	resetService := services.NewPasswordResetService(
		tokenRepo,
		identityRepo,
		mailer,
		services.SystemClock(),
		logger,
		cfg.Email.ResetTokenExpiry,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		authService,
		resetService,
		sessionManager,
		cookieConfig,
		cfg.Server.BaseURL,
		cfg.Server.DefaultRedirect,
	)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, sessionManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
