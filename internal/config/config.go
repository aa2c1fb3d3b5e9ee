/**
 * @description
 * Configuration management for the confirmation service.
 */
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/walletgate/confirmation-service/internal/domain"
)

// Config holds all configuration for the application. Amounts are minor
// currency units.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	LedgerServiceURL     string `mapstructure:"LEDGER_SERVICE_URL"`
	LedgerInternalAPIKey string `mapstructure:"LEDGER_SERVICE_INTERNAL_API_KEY"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	AdminJWKSURL         string `mapstructure:"ADMIN_JWKS_URL"`
	PublicBaseURL        string `mapstructure:"PUBLIC_BASE_URL"`

	EmailConfirmEnabled bool   `mapstructure:"EMAIL_CONFIRM_ENABLED"`
	ConfirmCriteria     string `mapstructure:"CONFIRM_CRITERIA"`
	RequiredBalance     int64  `mapstructure:"REQUIRED_BALANCE"`
	RequiredFee         int64  `mapstructure:"REQUIRED_FEE"`
	ExtraFee            int64  `mapstructure:"EXTRA_FEE"`
	ApplyToAllAuth      bool   `mapstructure:"APPLY_TO_ALL_AUTH"`
	Currency            string `mapstructure:"CURRENCY"`

	StaleRetentionHours int    `mapstructure:"STALE_RETENTION_HOURS"`
	FreeAllotment       int64  `mapstructure:"FREE_ALLOTMENT"`
	CleanupJobSchedule  string `mapstructure:"CLEANUP_JOB_SCHEDULE"`
}

// Criterion returns the configured criterion as a domain value.
func (c Config) Criterion() domain.Criterion {
	return domain.Criterion(c.ConfirmCriteria)
}

// LoadConfig reads configuration from environment variables and validates
// the confirmation settings.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CONFIRM_CRITERIA", string(domain.CriterionBalance))
	viper.SetDefault("CURRENCY", "NGN")
	viper.SetDefault("STALE_RETENTION_HOURS", 96)
	viper.SetDefault("CLEANUP_JOB_SCHEDULE", "0 */4 * * *") // Every 4 hours.
	viper.AutomaticEnv()

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("LEDGER_SERVICE_URL")
	_ = viper.BindEnv("LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("ADMIN_JWKS_URL")
	_ = viper.BindEnv("PUBLIC_BASE_URL")
	_ = viper.BindEnv("EMAIL_CONFIRM_ENABLED")
	_ = viper.BindEnv("CONFIRM_CRITERIA")
	_ = viper.BindEnv("REQUIRED_BALANCE")
	_ = viper.BindEnv("REQUIRED_FEE")
	_ = viper.BindEnv("EXTRA_FEE")
	_ = viper.BindEnv("APPLY_TO_ALL_AUTH")
	_ = viper.BindEnv("CURRENCY")
	_ = viper.BindEnv("STALE_RETENTION_HOURS")
	_ = viper.BindEnv("FREE_ALLOTMENT")
	_ = viper.BindEnv("CLEANUP_JOB_SCHEDULE")

	if err = viper.Unmarshal(&config); err != nil {
		return
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}

	switch config.Criterion() {
	case domain.CriterionBalance, domain.CriterionFee:
	default:
		err = fmt.Errorf("%w: CONFIRM_CRITERIA=%q", domain.ErrConfigurationError, config.ConfirmCriteria)
		return
	}

	if config.RequiredBalance < 0 || config.RequiredFee < 0 || config.ExtraFee < 0 {
		err = fmt.Errorf("%w: amounts must be non-negative", domain.ErrConfigurationError)
		return
	}

	// The extra fee is debited out of the required balance; a value above it
	// would leave a qualifying account short, so clamp it down.
	if config.Criterion() == domain.CriterionBalance && config.ExtraFee > config.RequiredBalance {
		log.Printf("WARN: EXTRA_FEE %d exceeds REQUIRED_BALANCE %d, clamping down", config.ExtraFee, config.RequiredBalance)
		config.ExtraFee = config.RequiredBalance
	}

	if config.LedgerInternalAPIKey == "" {
		config.LedgerInternalAPIKey = config.InternalAPIKey
	}

	return
}
