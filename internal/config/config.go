package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken   string   `env:"DISCORD_TOKEN"`
	Prefix         string   `env:"BOT_PREFIX" envDefault:"!"`
	OperatorIDs    []string `env:"OPERATOR_IDS" envSeparator:","`
	GuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`

	StoragePath  string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	SettingsFile string `env:"SETTINGS_FILE"`

	WaiterWorkers int           `env:"WAITER_WORKERS" envDefault:"3"`
	SweepInterval time.Duration `env:"COOLDOWN_SWEEP_INTERVAL" envDefault:"1h"`
	ReplyRate     float64       `env:"REPLY_RATE" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// LoadDotEnv loads .env files into the process environment. A missing file
// is not an error; the returned bool reports whether anything was loaded.
func LoadDotEnv(files ...string) (bool, error) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load .env: %w", err)
	}
	return true, nil
}

// New parses the configuration from the environment.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Prefix == "" {
		return errors.New("BOT_PREFIX must not be empty")
	}
	if c.WaiterWorkers < 1 {
		return fmt.Errorf("WAITER_WORKERS must be positive, got %d", c.WaiterWorkers)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("COOLDOWN_SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.ReplyRate <= 0 {
		return fmt.Errorf("REPLY_RATE must be positive, got %v", c.ReplyRate)
	}
	return nil
}

// RequireToken fails when no Discord token is configured.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

func (c *Config) IsOperator(userID string) bool {
	return slices.Contains(c.OperatorIDs, userID)
}

func (c *Config) IsBlacklisted(guildID string) bool {
	return slices.Contains(c.GuildBlacklist, guildID)
}
