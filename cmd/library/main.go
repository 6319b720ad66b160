package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"library_service/pkg/auth"
	"library_service/pkg/catalog"
	"library_service/pkg/config"
	"library_service/pkg/database"
	"library_service/pkg/lending"
	"library_service/pkg/mailer"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	db         *gorm.DB
	logger     *zap.Logger
	lendingSvc *lending.Service
	catalogSvc *catalog.Service
	authSvc    *auth.Service
)

func main() {
	cfg := config.Load()

	var err error
	logger, err = newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting library service", zap.String("env", cfg.Env))

	db, err = database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("database setup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pending, err := newPendingStore(ctx, cfg)
	if err != nil {
		logger.Fatal("pending registration store setup failed", zap.Error(err))
	}

	dispatcher := mailer.NewDispatcher(newSender(cfg), logger, mailer.DefaultDispatcherOptions())
	go dispatcher.Run(ctx)

	lendingSvc = lending.NewService(db, logger)
	catalogSvc = catalog.NewService(db, logger)
	authSvc = auth.NewService(db, pending, dispatcher, logger, auth.Options{
		SessionTTL:      cfg.SessionTTL,
		RegistrationTTL: cfg.RegistrationTTL,
		ResetCodeTTL:    cfg.ResetCodeTTL,
	})

	if _, err := authSvc.EnsureSuperAdmin(ctx, cfg.AdminUserName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("superadmin seeding failed", zap.Error(err))
	}
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set, superadmin seeding skipped")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("library service listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newPendingStore(ctx context.Context, cfg config.Config) (auth.PendingStore, error) {
	if cfg.PendingStore != "redis" {
		return auth.NewGormPendingStore(db), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	logger.Info("using redis for pending registrations", zap.String("addr", cfg.RedisAddr))
	return auth.NewRedisPendingStore(client), nil
}

func newSender(cfg config.Config) mailer.Sender {
	if cfg.MailSender == "smtp" {
		logger.Info("sending mail through smtp", zap.String("host", cfg.SMTPHost), zap.Int("port", cfg.SMTPPort))
		return mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}
	return mailer.NewLogSender(logger)
}
