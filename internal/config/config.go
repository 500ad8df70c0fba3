package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kdev89/feudline/internal/game"
)

// Config is the process configuration: YAML file first, environment
// variables override.
type Config struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`

	Oracle struct {
		URL     string   `yaml:"url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"oracle"`

	Database DatabaseConfig `yaml:"database"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Game GameConfig `yaml:"game"`
}

// Duration parses YAML durations in "30s" / "2m" notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

// GameConfig holds optional rule overrides. Zero values keep the defaults.
type GameConfig struct {
	Rounds            int      `yaml:"rounds"`
	PlayGuessTimeout  Duration `yaml:"play_guess_timeout"`
	StealTimeout      Duration `yaml:"steal_timeout"`
	RevealStagger     Duration `yaml:"reveal_stagger"`
	RoundAdvanceDelay Duration `yaml:"round_advance_delay"`
	ReconnectGrace    Duration `yaml:"reconnect_grace"`

	FastMoneyQuestions   int      `yaml:"fast_money_questions"`
	FastMoneyPlayer1Time Duration `yaml:"fast_money_player1_time"`
	FastMoneyPlayer2Time Duration `yaml:"fast_money_player2_time"`
	FastMoneyThreshold   int      `yaml:"fast_money_threshold"`
	FastMoneyBonus       int      `yaml:"fast_money_bonus"`
}

// GameSettings resolves the configured overrides against the default rules.
func (c *Config) GameSettings() game.Settings {
	s := game.DefaultSettings()
	g := c.Game
	if g.Rounds > 0 {
		s.Rounds = g.Rounds
	}
	if g.PlayGuessTimeout > 0 {
		s.PlayGuessTimeout = time.Duration(g.PlayGuessTimeout)
	}
	if g.StealTimeout > 0 {
		s.StealTimeout = time.Duration(g.StealTimeout)
	}
	if g.RevealStagger > 0 {
		s.RevealStagger = time.Duration(g.RevealStagger)
	}
	if g.RoundAdvanceDelay > 0 {
		s.RoundAdvanceDelay = time.Duration(g.RoundAdvanceDelay)
	}
	if g.ReconnectGrace > 0 {
		s.ReconnectGrace = time.Duration(g.ReconnectGrace)
	}
	if g.FastMoneyQuestions > 0 {
		s.FastMoneyQuestions = g.FastMoneyQuestions
	}
	if g.FastMoneyPlayer1Time > 0 {
		s.FastMoneyPlayer1Time = time.Duration(g.FastMoneyPlayer1Time)
	}
	if g.FastMoneyPlayer2Time > 0 {
		s.FastMoneyPlayer2Time = time.Duration(g.FastMoneyPlayer2Time)
	}
	if g.FastMoneyThreshold > 0 {
		s.FastMoneyThreshold = g.FastMoneyThreshold
	}
	if g.FastMoneyBonus > 0 {
		s.FastMoneyBonus = g.FastMoneyBonus
	}
	return s
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Load reads the YAML file at path (optional) and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTP.Port = getEnv("PORT", cfg.HTTP.Port)
	cfg.Oracle.URL = getEnv("ORACLE_URL", cfg.Oracle.URL)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.Subject = getEnv("NATS_SUBJECT", cfg.NATS.Subject)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	if v := os.Getenv("DB_ENABLED"); v != "" {
		cfg.Database.Enabled = v == "true" || v == "1"
	}

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Oracle.Timeout = Duration(3 * time.Second)
	cfg.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "feudline",
		SSLMode:  "disable",
	}
	cfg.NATS.Subject = "feudline.games.finished"
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
