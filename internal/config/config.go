/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the booking-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`

	PaymentGatewayBaseURL        string `mapstructure:"PAYMENT_GATEWAY_BASE_URL"`
	PaymentGatewayAPIKey         string `mapstructure:"PAYMENT_GATEWAY_API_KEY"`
	PaymentGatewayTimeoutSeconds int    `mapstructure:"PAYMENT_GATEWAY_TIMEOUT_SECONDS"`

	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`

	DefaultCurrency            string `mapstructure:"DEFAULT_CURRENCY"`
	CheckoutRateLimitPerMinute int    `mapstructure:"CHECKOUT_RATE_LIMIT_PER_MINUTE"`
	ResetTokenTTLHours         int    `mapstructure:"RESET_TOKEN_TTL_HOURS"`
	ReconcileIntervalMinutes   int    `mapstructure:"RECONCILE_INTERVAL_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ibooktours:rate_limit")
	viper.SetDefault("PAYMENT_GATEWAY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("CHECKOUT_RATE_LIMIT_PER_MINUTE", 20)
	viper.SetDefault("RESET_TOKEN_TTL_HOURS", 48)
	viper.SetDefault("RECONCILE_INTERVAL_MINUTES", 15)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "BOOKING_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYMENT_GATEWAY_BASE_URL")
	_ = viper.BindEnv("PAYMENT_GATEWAY_API_KEY")
	_ = viper.BindEnv("PAYMENT_GATEWAY_TIMEOUT_SECONDS")
	_ = viper.BindEnv("ADMIN_JWT_SECRET", "ADMIN_JWT_SECRET", "BOOKING_SERVICE_ADMIN_JWT_SECRET")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("CHECKOUT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RESET_TOKEN_TTL_HOURS")
	_ = viper.BindEnv("RECONCILE_INTERVAL_MINUTES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.AdminJWTSecret) == "" {
		config.AdminJWTSecret = strings.TrimSpace(os.Getenv("BOOKING_SERVICE_ADMIN_JWT_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ibooktours:rate_limit"
	}

	config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}

	if config.PaymentGatewayTimeoutSeconds <= 0 {
		config.PaymentGatewayTimeoutSeconds = 30
	}
	if config.CheckoutRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative checkout rate limit configured; disabling\" limit=%d", config.CheckoutRateLimitPerMinute)
		config.CheckoutRateLimitPerMinute = 0
	}
	if config.ResetTokenTTLHours <= 0 {
		config.ResetTokenTTLHours = 48
	}
	if config.ReconcileIntervalMinutes <= 0 {
		config.ReconcileIntervalMinutes = 15
	}

	return
}
