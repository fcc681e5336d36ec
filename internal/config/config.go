// Package config loads client and stub-server settings from an optional
// YAML file with environment overrides.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	URL string `mapstructure:"url"`
}

type WSConfig struct {
	HandshakeTimeoutSeconds int `mapstructure:"handshake_timeout_seconds"`
	WriteTimeoutSeconds     int `mapstructure:"write_timeout_seconds"`
	ReadTimeoutSeconds      int `mapstructure:"read_timeout_seconds"`
	PingIntervalSeconds     int `mapstructure:"ping_interval_seconds"`
	SendBuffer              int `mapstructure:"send_buffer"`
}

type SessionConfig struct {
	FlagPath string `mapstructure:"flag_path"`
}

type StubConfig struct {
	Port      int     `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	WS      WSConfig      `mapstructure:"ws"`
	Session SessionConfig `mapstructure:"session"`
	Stub    StubConfig    `mapstructure:"stub"`
	LogDev  bool          `mapstructure:"log_dev"`

	// derived
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
}

// Load reads the config file at path when given, applies CHAT_* env
// overrides, and fills defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = "ws://127.0.0.1:4000"
	}
	if cfg.WS.HandshakeTimeoutSeconds == 0 {
		cfg.WS.HandshakeTimeoutSeconds = 5
	}
	if cfg.WS.WriteTimeoutSeconds == 0 {
		cfg.WS.WriteTimeoutSeconds = 10
	}
	if cfg.WS.ReadTimeoutSeconds == 0 {
		cfg.WS.ReadTimeoutSeconds = 60
	}
	if cfg.WS.PingIntervalSeconds == 0 {
		cfg.WS.PingIntervalSeconds = 25
	}
	if cfg.WS.SendBuffer == 0 {
		cfg.WS.SendBuffer = 64
	}
	if cfg.Session.FlagPath == "" {
		cfg.Session.FlagPath = ".chat-client/session.json"
	}
	if cfg.Stub.Port == 0 {
		cfg.Stub.Port = 4000
	}
	if cfg.Stub.RateLimit == 0 {
		cfg.Stub.RateLimit = 50
	}
	if cfg.Stub.RateBurst == 0 {
		cfg.Stub.RateBurst = 100
	}

	cfg.HandshakeTimeout = time.Duration(cfg.WS.HandshakeTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.WS.WriteTimeoutSeconds) * time.Second
	cfg.ReadTimeout = time.Duration(cfg.WS.ReadTimeoutSeconds) * time.Second
	cfg.PingInterval = time.Duration(cfg.WS.PingIntervalSeconds) * time.Second
	return &cfg, nil
}
