package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/clickrush/go/internal/game"
)

// Config holds the gateway's file-based configuration. Every value can
// also be overridden by environment variables.
type Config struct {
	Game struct {
		CountdownTicks      int `yaml:"countdown_ticks"`
		ActiveWindowSeconds int `yaml:"active_window_seconds"`
		LeaderboardDepth    int `yaml:"leaderboard_depth"`
	} `yaml:"game"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		ServiceURL string `yaml:"service_url"`
	} `yaml:"auth"`
}

func defaultConfig() *Config {
	var config Config
	config.Game.CountdownTicks = 3
	config.Game.ActiveWindowSeconds = 5
	config.Game.LeaderboardDepth = 10
	config.NATS.Subject = "scores.settled"
	config.Auth.ServiceURL = "http://localhost:3000"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	config.Game.CountdownTicks = getEnvAsInt("GAME_COUNTDOWN_TICKS", config.Game.CountdownTicks)
	config.Game.ActiveWindowSeconds = getEnvAsInt("GAME_ACTIVE_WINDOW_SECONDS", config.Game.ActiveWindowSeconds)
	config.Game.LeaderboardDepth = getEnvAsInt("GAME_LEADERBOARD_DEPTH", config.Game.LeaderboardDepth)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.NATS.Subject = getEnv("NATS_SUBJECT", config.NATS.Subject)
	config.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", config.Auth.JWTSecret)
	config.Auth.ServiceURL = getEnv("AUTH_SERVICE_URL", config.Auth.ServiceURL)
}

// gameConfig translates the file settings to round timing constants.
func (c *Config) gameConfig() game.Config {
	return game.Config{
		CountdownTicks: c.Game.CountdownTicks,
		ActiveWindow:   time.Duration(c.Game.ActiveWindowSeconds) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
