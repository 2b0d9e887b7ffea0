package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

// fileConfig mirrors App with durations as strings, the way they are
// written in yaml ("24h", "15m").
type fileConfig struct {
	Port          string `yaml:"port"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	JWTSecret     string `yaml:"jwtSecret"`
	SessionTTL    string `yaml:"sessionTTL"`
	SweepInterval string `yaml:"sweepInterval"`
	Env           string `yaml:"env"`
}

// Load reads config.yaml (optional) and applies environment overrides.
func Load(path string) (App, error) {
	cfg := App{
		Port:          "8080",
		SessionTTL:    24 * time.Hour,
		SweepInterval: time.Hour,
		Env:           "dev",
	}
	if path == "" {
		path = defaultPath
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if err := fc.apply(&cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	return cfg, validate(cfg)
}

func (fc fileConfig) apply(cfg *App) error {
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.RedisAddr != "" {
		cfg.RedisAddr = fc.RedisAddr
	}
	if fc.RedisPassword != "" {
		cfg.RedisPassword = fc.RedisPassword
	}
	if fc.JWTSecret != "" {
		cfg.JWTSecret = fc.JWTSecret
	}
	if fc.SessionTTL != "" {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("parse sessionTTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if fc.SweepInterval != "" {
		d, err := time.ParseDuration(fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("parse sweepInterval: %w", err)
		}
		cfg.SweepInterval = d
	}
	if fc.Env != "" {
		cfg.Env = fc.Env
	}
	return nil
}

func validate(cfg App) error {
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("config: sweepInterval must be positive")
	}
	return nil
}
