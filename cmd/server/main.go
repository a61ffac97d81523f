package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace-auth/internal/auth"
	"marketplace-auth/internal/auth/service"
	"marketplace-auth/internal/config"
	"marketplace-auth/internal/db"
	"marketplace-auth/internal/email"
	"marketplace-auth/internal/otp"
	"marketplace-auth/internal/security"
	"marketplace-auth/internal/server"
	"marketplace-auth/internal/sms"
	"marketplace-auth/internal/telemetry"
	otelsetup "marketplace-auth/internal/telemetry/otel"
	"marketplace-auth/internal/user/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "marketplace-auth", cfg.OTLPInsecure)
	if err != nil {
		logger.Error("telemetry", "error", err)
		os.Exit(1)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	if cfg.DatabaseURL == "" {
		logger.Error("config", "error", "DATABASE_URL must be set")
		os.Exit(1)
	}
	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var otpStore otp.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		otpStore = otp.NewRedisStore(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-memory OTP store")
		otpStore = otp.NewMemoryStore()
	}

	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer, cfg.JWTAudience,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)

	users := repository.NewPostgresRepository(pool)
	authn := auth.NewAuthenticator(tokens, users)
	codes := otp.NewService(otpStore, cfg.OTPTTL(), cfg.OTPMaxAttempts)

	var smsSender service.SMSSender
	if cfg.SMSLocalAPIKey != "" {
		smsSender = sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
	}
	var emailSender service.EmailSender
	if cfg.SMTPHost != "" {
		emailSender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.OTPTTL())
	}
	if smsSender == nil && emailSender == nil && !cfg.OTPReturnToClient {
		logger.Error("config", "error", "no OTP delivery channel configured and OTP_RETURN_TO_CLIENT is false")
		os.Exit(1)
	}

	metrics, err := telemetry.NewAuthMetrics(providers.MeterProvider.Meter("marketplace-auth"))
	if err != nil {
		logger.Error("telemetry", "error", err)
		os.Exit(1)
	}

	svc := service.NewAuthService(users, codes, tokens, authn, smsSender, emailSender, metrics, logger, cfg.OTPReturnToClient)
	handler := server.NewAuthHandler(svc, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(handler, authn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("http server stopped")
}
