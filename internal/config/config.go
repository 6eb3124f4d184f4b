package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"5000"`
	Environment string `envconfig:"APP_ENV" default:"development"`

	MongoURI string `envconfig:"MONGO_URI" required:"true"`
	DBName   string `envconfig:"DB_NAME" default:"storefront"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"720h"`

	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET"`

	// RedisAddr enables the auth rate limiter when set.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
}

// Load reads .env when present and resolves the configuration from the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug(".env not loaded")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// PaymentTestMode mirrors the gateway key check exposed to clients: without
// a configured key id, or outside production, payments run in sandbox mode.
func (c Config) PaymentTestMode() bool {
	return c.RazorpayKeyID == "" || !c.IsProduction()
}
