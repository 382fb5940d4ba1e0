// config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment (and .env when present).
type Config struct {
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	ListenAddr     string `env:"LISTEN_ADDR" envDefault:":5200"`

	// GatewayToken authenticates the chat gateway. Startup aborts without it.
	GatewayToken string `env:"GAME_SERVICE_TOKEN,required,notEmpty"`

	AssetsDir         string `env:"ASSETS_DIR" envDefault:"./assets"`
	RenderDir         string `env:"RENDER_DIR" envDefault:"./renders"`
	WordsFile         string `env:"WORDS_FILE"`
	BroadcastPassword string `env:"BROADCAST_PASSWORD"`

	AllowNegativeBalance bool    `env:"ALLOW_NEGATIVE_BALANCE" envDefault:"true"`
	FishingCastScale     float64 `env:"FISHING_CAST_SCALE" envDefault:"1"`

	R2AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL        string `env:"CDN_BASE_URL"`

	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"10m"`
	OfferTTL        time.Duration `env:"OFFER_TTL" envDefault:"24h"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads the current environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.FishingCastScale < 0 {
		return nil, fmt.Errorf("FISHING_CAST_SCALE must not be negative")
	}
	return &cfg, nil
}
