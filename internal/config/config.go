package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the tracker.
type Config struct {
	TelegramToken string        `toml:"telegram_token"`
	DatabaseURL   string        `toml:"database_url"`
	ReportTime    string        `toml:"report_time"`
	CheckInterval time.Duration `toml:"-"`
	CheckMinutes  int           `toml:"check_interval_minutes"`
	Timezone      string        `toml:"timezone"`
	APIAddr       string        `toml:"api_addr"`
	APIKey        string        `toml:"api_key"`
	LogLevel      string        `toml:"log_level"`
	LogDev        bool          `toml:"log_dev"`

	Location *time.Location `toml:"-"`
}

// Load reads an optional .env file, an optional TOML file named by CONFIG_FILE,
// then environment variables, and fills in defaults.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	override(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	override(&cfg.DatabaseURL, "DATABASE_URL")
	override(&cfg.ReportTime, "REPORT_TIME")
	override(&cfg.Timezone, "TIMEZONE")
	override(&cfg.APIAddr, "API_ADDR")
	override(&cfg.APIKey, "API_KEY")
	override(&cfg.LogLevel, "LOG_LEVEL")
	if raw := strings.TrimSpace(os.Getenv("CHECK_INTERVAL_MINUTES")); raw != "" {
		cfg.CheckMinutes = parseMinutes(raw)
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_DEV")); raw != "" {
		cfg.LogDev, _ = strconv.ParseBool(raw)
	}

	return cfg, applyDefaults(&cfg)
}

// RequireTelegram fails when the bot token is missing.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "obligation_tracker.db"
	}
	if cfg.ReportTime == "" {
		cfg.ReportTime = "09:00"
	}
	if cfg.CheckMinutes <= 0 {
		cfg.CheckMinutes = 60
	}
	cfg.CheckInterval = time.Duration(cfg.CheckMinutes) * time.Minute
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Location = time.Local
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}
	return nil
}

func override(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func parseMinutes(raw string) int {
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0
	}
	return minutes
}
