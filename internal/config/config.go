package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/park285/chessmaster/internal/obslog"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type AppConfig struct {
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"chessmaster.db"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`

	StockfishPath    string `env:"STOCKFISH_PATH"`
	EngineSkillLevel int    `env:"ENGINE_SKILL_LEVEL" envDefault:"5"`
	EngineMoveTimeMS int    `env:"ENGINE_MOVETIME_MS" envDefault:"500"`

	MessagesFile string `env:"MESSAGES_FILE"`
	HistoryFile  string `env:"HISTORY_FILE" envDefault:".chessmaster_history"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"legacy"`
	LogToConsole bool   `env:"LOG_TO_CONSOLE" envDefault:"false"`
	LogToFile    bool   `env:"LOG_TO_FILE" envDefault:"true"`
	LogFile      string `env:"LOG_FILE" envDefault:"logs/chessmaster.log"`
	LogCaller    bool   `env:"LOG_CALLER" envDefault:"false"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.StockfishPath = strings.TrimSpace(cfg.StockfishPath)
	cfg.MessagesFile = strings.TrimSpace(cfg.MessagesFile)

	if cfg.EngineSkillLevel < 0 || cfg.EngineSkillLevel > 20 {
		cfg.EngineSkillLevel = 5
	}
	if cfg.EngineMoveTimeMS <= 0 {
		cfg.EngineMoveTimeMS = 500
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// LogOptions projects the LOG_* settings onto obslog.
func (c *AppConfig) LogOptions() obslog.Options {
	return obslog.Options{
		Level:     c.LogLevel,
		Format:    c.LogFormat,
		ToConsole: c.LogToConsole,
		ToFile:    c.LogToFile,
		File:      c.LogFile,
		Caller:    c.LogCaller,
	}
}
