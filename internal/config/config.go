package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/worldmapquiz.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`
	RedisURL string     `env:"REDIS_URL"`

	TokenSecret       string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	CountriesFile     string        `env:"COUNTRIES_FILE"`

	TurnDuration   time.Duration `env:"TURN_DURATION" envDefault:"20s"`
	LobbyCountdown time.Duration `env:"LOBBY_COUNTDOWN" envDefault:"10m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1s"`
	CreationLimit  int           `env:"CREATION_LIMIT" envDefault:"3"`
	CreationWindow time.Duration `env:"CREATION_WINDOW" envDefault:"24h"`
	ActionRate     float64       `env:"ACTION_RATE" envDefault:"5"`
	ActionBurst    int           `env:"ACTION_BURST" envDefault:"10"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT"`
	OTLPInsecure   bool   `env:"OTLP_INSECURE" envDefault:"false"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"worldmapquiz"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.TurnDuration <= 0:
		return fmt.Errorf("TURN_DURATION must be positive")
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	case c.CreationLimit < 0:
		return fmt.Errorf("CREATION_LIMIT must not be negative")
	case c.ActionRate <= 0 || c.ActionBurst <= 0:
		return fmt.Errorf("ACTION_RATE and ACTION_BURST must be positive")
	}
	return nil
}
