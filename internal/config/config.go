/**
 * @description
 * Configuration management for the subscription-api. Uses viper to load
 * settings from environment variables with sensible defaults.
 */
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort                 string        `mapstructure:"SERVER_PORT"`
	DatabaseURL                string        `mapstructure:"DATABASE_URL"`
	RabbitMQURL                string        `mapstructure:"RABBITMQ_URL"`
	JWTSecret                  string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn               time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	EmailFrom                  string        `mapstructure:"EMAIL_FROM"`
	TokenPurgeSchedule         string        `mapstructure:"TOKEN_PURGE_SCHEDULE"`
	SubscriptionExpirySchedule string        `mapstructure:"SUBSCRIPTION_EXPIRY_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_EXPIRES_IN", "24h")
	viper.SetDefault("EMAIL_FROM", "reminders@subtrack.app")
	viper.SetDefault("TOKEN_PURGE_SCHEDULE", "@hourly")
	viper.SetDefault("SUBSCRIPTION_EXPIRY_SCHEDULE", "30 0 * * *")
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_EXPIRES_IN")
	_ = viper.BindEnv("EMAIL_FROM")
	_ = viper.BindEnv("TOKEN_PURGE_SCHEDULE")
	_ = viper.BindEnv("SUBSCRIPTION_EXPIRY_SCHEDULE")

	err = viper.Unmarshal(&config)
	return
}
