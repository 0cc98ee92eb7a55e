package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Identity IdentityConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// IdentityConfig holds the verification key for tokens issued by the external
// identity service. This service never issues tokens itself.
type IdentityConfig struct {
	JWTSecret string
}

// CheckoutConfig carries the merchant's pricing policy. Rates and thresholds
// are operational knobs, not constants.
type CheckoutConfig struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CHECKOUT_TAX_RATE", 0.08)
	viper.SetDefault("CHECKOUT_FREE_SHIPPING_THRESHOLD", 100.0)
	viper.SetDefault("CHECKOUT_SHIPPING_FEE", 10.0)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Identity: IdentityConfig{
			JWTSecret: viper.GetString("IDENTITY_JWT_SECRET"),
		},
		Checkout: CheckoutConfig{
			TaxRate:               viper.GetFloat64("CHECKOUT_TAX_RATE"),
			FreeShippingThreshold: viper.GetFloat64("CHECKOUT_FREE_SHIPPING_THRESHOLD"),
			ShippingFee:           viper.GetFloat64("CHECKOUT_SHIPPING_FEE"),
		},
	}
}
