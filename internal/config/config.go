// Package config loads server configuration from defaults, an optional
// YAML config file, and environment variables, in increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the room service.
type Config struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`

	RoomCodeLength   int    `mapstructure:"roomCodeLength"`
	RoomCodeAlphabet string `mapstructure:"roomCodeAlphabet"`

	MaxPlayersPerRoom int `mapstructure:"maxPlayersPerRoom"`
	BoardSize         int `mapstructure:"boardSize"`

	ReconnectionGracePeriod time.Duration `mapstructure:"reconnectionGracePeriod"`
	TurnTimeout             time.Duration `mapstructure:"turnTimeout"`
	RematchWindow           time.Duration `mapstructure:"rematchWindow"`
	IdleRoomTimeout         time.Duration `mapstructure:"idleRoomTimeout"`
	RoomSweepInterval       time.Duration `mapstructure:"roomSweepInterval"`

	RoomCacheTimeout     time.Duration `mapstructure:"roomCacheTimeout"`
	AllRoomsCacheTimeout time.Duration `mapstructure:"allRoomsCacheTimeout"`

	RedisAddr        string `mapstructure:"redisAddr"`
	AllowedWSOrigins string `mapstructure:"allowedWsOrigins"`

	LogLevel  string `mapstructure:"logLevel"`
	LogFormat string `mapstructure:"logFormat"`

	// Rate limiting for the websocket upgrade endpoint
	// (requests per second per client IP, with burst).
	RateLimit      float64 `mapstructure:"rateLimit"`
	RateLimitBurst int     `mapstructure:"rateLimitBurst"`

	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// Load reads configuration using viper.
// Priority order: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("server")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("port", "PORT")
	v.BindEnv("host", "HOST")
	v.BindEnv("redisAddr", "REDIS_ADDR")
	v.BindEnv("allowedWsOrigins", "ALLOWED_WS_ORIGINS")
	v.BindEnv("logLevel", "LOG_LEVEL")
	v.BindEnv("logFormat", "LOG_FORMAT")

	v.SetDefault("port", "8080")
	v.SetDefault("host", "")

	v.SetDefault("roomCodeLength", 6)
	v.SetDefault("roomCodeAlphabet", "ABCDEFGHJKMNPQRSTUVWXYZ23456789")
	v.SetDefault("maxPlayersPerRoom", 2)
	v.SetDefault("boardSize", 9)

	v.SetDefault("reconnectionGracePeriod", "30s")
	v.SetDefault("turnTimeout", "30s")
	v.SetDefault("rematchWindow", "30s")
	v.SetDefault("idleRoomTimeout", "300s")
	v.SetDefault("roomSweepInterval", "60s")

	v.SetDefault("roomCacheTimeout", "1h")
	v.SetDefault("allRoomsCacheTimeout", "5m")

	v.SetDefault("redisAddr", "")
	v.SetDefault("allowedWsOrigins", "")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "text")

	v.SetDefault("rateLimit", 10.0)
	v.SetDefault("rateLimitBurst", 20)
	v.SetDefault("shutdownTimeout", "30s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file or directory") {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
		// Config file is optional; continue with env vars and defaults.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks config values that would break the room runtime.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.RoomCodeLength < 4 || c.RoomCodeLength > 6 {
		return fmt.Errorf("roomCodeLength must be between 4 and 6, got %d", c.RoomCodeLength)
	}
	if len(c.RoomCodeAlphabet) < 2 {
		return fmt.Errorf("roomCodeAlphabet needs at least 2 characters")
	}
	if c.MaxPlayersPerRoom != 2 {
		return fmt.Errorf("maxPlayersPerRoom must be 2, got %d", c.MaxPlayersPerRoom)
	}
	if c.BoardSize != 9 {
		return fmt.Errorf("boardSize must be 9, got %d", c.BoardSize)
	}
	if c.ReconnectionGracePeriod < time.Second {
		return fmt.Errorf("reconnectionGracePeriod must be at least 1s")
	}
	if c.TurnTimeout < time.Second {
		return fmt.Errorf("turnTimeout must be at least 1s")
	}
	if c.RematchWindow < time.Second {
		return fmt.Errorf("rematchWindow must be at least 1s")
	}
	if c.RoomSweepInterval < time.Second {
		return fmt.Errorf("roomSweepInterval must be at least 1s")
	}
	return nil
}
