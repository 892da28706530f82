// Package config loads server configuration from config.yaml and the
// environment via viper. Every key has a default so the server starts
// with no config file at all; secrets are expected to come from the
// environment (MARUP_AUTH_JWT_SECRET and friends).
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full server configuration.
type Config struct {
	Server struct {
		Port         int
		AllowOrigins []string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret     string
		TokenDuration time.Duration
	}
	Lottery struct {
		// RequireFullContribution makes round resolution wait for
		// every member's contribution.
		RequireFullContribution bool
	}
	Stripe struct {
		SecretKey     string
		WebhookSecret string
		SuccessURL    string
		CancelURL     string
	}
	Scheduler struct {
		// Cron specs for the two background jobs. Empty disables a job.
		ResolveDueRounds string
		MonthlyReminders string
	}
}

// Load reads config.yaml from the working directory, overlaid with
// MARUP_-prefixed environment variables (MARUP_SERVER_PORT etc.).
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("marup")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allow_origins", []string{"*"})
	viper.SetDefault("database.path", "data/marup.db")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_duration", "24h")
	viper.SetDefault("lottery.require_full_contribution", false)
	viper.SetDefault("stripe.secret_key", "")
	viper.SetDefault("stripe.webhook_secret", "")
	viper.SetDefault("stripe.success_url", "http://localhost:3000/payment/success")
	viper.SetDefault("stripe.cancel_url", "http://localhost:3000/payment/cancel")
	viper.SetDefault("scheduler.resolve_due_rounds", "@every 1h")
	viper.SetDefault("scheduler.monthly_reminders", "0 9 1 * *") // 09:00 on the 1st

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Info("No config file found, using defaults and environment")
	}

	cfg := &Config{}
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.AllowOrigins = viper.GetStringSlice("server.allow_origins")
	cfg.Database.Path = viper.GetString("database.path")
	cfg.Auth.JWTSecret = viper.GetString("auth.jwt_secret")
	cfg.Auth.TokenDuration = viper.GetDuration("auth.token_duration")
	cfg.Lottery.RequireFullContribution = viper.GetBool("lottery.require_full_contribution")
	cfg.Stripe.SecretKey = viper.GetString("stripe.secret_key")
	cfg.Stripe.WebhookSecret = viper.GetString("stripe.webhook_secret")
	cfg.Stripe.SuccessURL = viper.GetString("stripe.success_url")
	cfg.Stripe.CancelURL = viper.GetString("stripe.cancel_url")
	cfg.Scheduler.ResolveDueRounds = viper.GetString("scheduler.resolve_due_rounds")
	cfg.Scheduler.MonthlyReminders = viper.GetString("scheduler.monthly_reminders")
	return cfg, nil
}
