package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database    DatabaseConfig   `json:"database"`
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	FileStore   FileStoreConfig  `json:"file_store"`
	Mail        MailConfig       `json:"mail"`
	AI          AIConfig         `json:"ai"`
	Share       ShareConfig      `json:"share"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	MaxInputChars int         `json:"max_input_chars"`
	TimeoutSecs   int         `json:"timeout_secs"`
	Data          interface{} `json:"data"`
}

type ShareConfig struct {
	BaseURL       string `json:"base_url"`
	CodeTTLDays   int    `json:"code_ttl_days"`
	MaxAttempts   int    `json:"max_attempts"`
	URLTTLSeconds int    `json:"url_ttl_seconds"`
	SweepCron     string `json:"sweep_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 100000
	}
	if cfg.AI.TimeoutSecs == 0 {
		cfg.AI.TimeoutSecs = 120
	}
	if cfg.Share.BaseURL == "" {
		return nil, fmt.Errorf("share.base_url is required")
	}
	if cfg.Share.CodeTTLDays == 0 {
		cfg.Share.CodeTTLDays = 7
	}
	if cfg.Share.MaxAttempts == 0 {
		cfg.Share.MaxAttempts = 5
	}
	if cfg.Share.URLTTLSeconds == 0 {
		cfg.Share.URLTTLSeconds = 3600
	}
	if cfg.Share.SweepCron == "" {
		cfg.Share.SweepCron = "0 * * * *"
	}
	return &cfg, nil
}
