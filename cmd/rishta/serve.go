package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rishta-app/rishta/internal/auth"
	"github.com/rishta-app/rishta/internal/config"
	httpserver "github.com/rishta-app/rishta/internal/http"
	"github.com/rishta-app/rishta/internal/notification"
	"github.com/rishta-app/rishta/internal/repository"
	"github.com/rishta-app/rishta/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	identitiesRepo := repository.NewIdentitiesRepository(db)
	messagesRepo := repository.NewMessagesRepository(db)

	// Initialize mailer if configured. Without it codes are still
	// issued and stored; delivery is reported as failed.
	var mailer notification.Mailer
	if cfg.HasSMTP() {
		mailer = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email service enabled")
	}

	// Initialize services
	codeIssuer := auth.NewCodeIssuer(auth.CodeIssuerConfig{
		CodeTTL:         cfg.CodeTTL,
		DeliveryTimeout: cfg.DeliveryTimeout,
	}, identitiesRepo, mailer, logger)

	credentialService := auth.NewCredentialService(identitiesRepo, codeIssuer, logger)

	sessionService := auth.NewSessionService(auth.SessionConfig{
		JWTSecret: []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		TTL:       cfg.SessionTTL,
	}, identitiesRepo)

	// Initialize Google service if configured
	var googleService *auth.GoogleService
	if cfg.HasGoogleOAuth() {
		googleService = auth.NewGoogleService(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}, identitiesRepo, logger)
		logger.Info("Google OAuth enabled")
	}

	// Initialize avatar storage if configured
	var avatarStore *storage.AvatarStore
	if cfg.HasObjectStore() {
		minioClient, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", "error", err)
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := minioClient.EnsureBucket(ctx); err != nil {
			cancel()
			logger.Error("failed to ensure avatar bucket", "error", err)
			os.Exit(1)
		}
		cancel()
		avatarStore = storage.NewAvatarStore(minioClient)
		logger.Info("avatar storage enabled", "bucket", cfg.MinioBucket)
	}

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                  logger,
		CredentialService:       credentialService,
		GoogleService:           googleService,
		SessionService:          sessionService,
		IdentitiesRepo:          identitiesRepo,
		MessagesRepo:            messagesRepo,
		AvatarStore:             avatarStore,
		ProtectedPrefixes:       cfg.ProtectedPrefixes,
		RateLimitEnabled:        cfg.RateLimitEnabled,
		AuthRequestsPerMinute:   cfg.AuthRequestsPerMinute,
		VerifyRequestsPerMinute: cfg.VerifyRequestsPerMinute,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
