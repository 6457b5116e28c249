// Package main runs the MFA service with in-memory settings storage.
// This is useful for:
// - Quick development and testing
// - Demo/prototype environments
// - Integration testing without database setup
//
// Settings are lost when the server stops. For production, wire
// mfa.NewPostgresSettingsRepository and a Redis challenge store instead.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-mfa/pkg/challenge"
	"github.com/tendant/simple-mfa/pkg/elevation"
	"github.com/tendant/simple-mfa/pkg/mfa"
	mfaapi "github.com/tendant/simple-mfa/pkg/mfa/api"
	"github.com/tendant/simple-mfa/pkg/notification"
	"github.com/tendant/simple-mfa/pkg/ratelimit"
)

type JwtConfig struct {
	Secret   string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer   string `env:"JWT_ISSUER" env-default:"simple-mfa"`
	Audience string `env:"JWT_AUDIENCE" env-default:"simple-mfa"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type TwilioConfig struct {
	AccountSid string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	From       string `env:"TWILIO_FROM"`
}

type RedisConfig struct {
	// When empty, challenges live in process memory
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type MfaConfig struct {
	// Issuer name shown in authenticator apps
	Issuer string `env:"MFA_ISSUER" env-default:"simple-mfa"`
}

type Config struct {
	Jwt    JwtConfig
	Email  EmailConfig
	Twilio TwilioConfig
	Redis  RedisConfig
	Mfa    MfaConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	config := Config{}
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read config from environment", "err", err)
		os.Exit(1)
	}

	notificationManager, err := buildNotificationManager(config)
	if err != nil {
		slog.Error("Failed to initialize notification manager", "err", err)
		os.Exit(1)
	}

	challengeStore := buildChallengeStore(config.Redis)

	service := mfa.NewMfaService(
		mfa.NewInMemorySettingsRepository(nil),
		mfa.WithChallengeStore(challengeStore),
		mfa.WithNotificationManager(notificationManager),
		mfa.WithTokenIssuer(elevation.NewJwtTokenIssuer(config.Jwt.Secret, config.Jwt.Issuer, config.Jwt.Audience)),
		mfa.WithEmailResolver(demoEmailResolver{}),
		mfa.WithIssuer(config.Mfa.Issuer),
	)

	// Per-IP budget on top of the per-challenge attempt ceiling, against
	// bulk probing of codes and challenge IDs.
	verifyLimiter := ratelimit.NewVerifyLimiter(10, 0.167, 10*time.Minute)

	server := app.DefaultApp()
	handler := mfaapi.NewHandler(service)
	server.R.Route("/api/mfa", func(r chi.Router) {
		r.Use(ratelimit.Middleware(verifyLimiter))
		handler.Routes(r)
	})

	slog.Info("MFA service ready", "issuer", config.Mfa.Issuer)
	server.Run()
}

func buildNotificationManager(config Config) (*notification.NotificationManager, error) {
	opts := []notification.NotificationManagerOption{
		notification.WithDefaultTemplates(),
	}

	if config.Email.Host != "" {
		opts = append(opts, notification.WithSMTP(notification.SMTPConfig{
			Host:     config.Email.Host,
			Port:     config.Email.Port,
			TLS:      config.Email.TLS,
			Username: config.Email.Username,
			Password: config.Email.Password,
			From:     config.Email.From,
		}))
	} else {
		slog.Warn("EMAIL_HOST not set, email codes are logged instead of delivered")
		opts = append(opts, notification.WithNotifier(notification.EmailSystem, loggingNotifier{system: "email"}))
	}

	if config.Twilio.AccountSid != "" {
		opts = append(opts, notification.WithTwilio(notification.TwilioConfig{
			AccountSid: config.Twilio.AccountSid,
			AuthToken:  config.Twilio.AuthToken,
			From:       config.Twilio.From,
		}))
	} else {
		slog.Warn("TWILIO_ACCOUNT_SID not set, sms codes are logged instead of delivered")
		opts = append(opts, notification.WithNotifier(notification.SMSSystem, loggingNotifier{system: "sms"}))
	}

	return notification.NewNotificationManagerWithOptions(opts...)
}

func buildChallengeStore(config RedisConfig) challenge.Store {
	if config.Addr != "" {
		slog.Info("Using redis challenge store", "addr", config.Addr)
		client := redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
		return challenge.NewRedisStore(client)
	}

	store := challenge.NewInMemoryStore()
	store.StartSweeper(0)
	return store
}

// demoEmailResolver stands in for an identity service; the MFA core
// itself never stores email addresses. The synthetic address pairs with
// the logging notifier for demo runs.
type demoEmailResolver struct{}

func (demoEmailResolver) ResolveEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	return fmt.Sprintf("user-%s@example.com", userID), nil
}

// loggingNotifier writes would-be deliveries to the log, for demo runs
// without real transports
type loggingNotifier struct {
	system string
}

func (n loggingNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData, template notification.NoticeTemplate) error {
	slog.Info("Notification (not delivered)", "system", n.system, "type", noticeType, "to", data.To, "data", data.Data)
	return nil
}
