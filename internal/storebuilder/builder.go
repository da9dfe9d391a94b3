package storebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/chessmaster/internal/config"
	"github.com/park285/chessmaster/internal/opponent"
	"github.com/park285/chessmaster/internal/store"
	"github.com/park285/chessmaster/internal/store/memstore"
	"github.com/park285/chessmaster/internal/store/redisstore"
	"github.com/park285/chessmaster/internal/store/sqlstore"
	"go.uber.org/zap"
)

// Deps are the collaborators the session flow needs from configuration.
type Deps struct {
	Store     store.Store
	Opponents *opponent.Factory
}

func (d *Deps) Close() error {
	if d == nil || d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := openStore(ctx, cfg, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	logger.Info("store_ready", zap.String("backend", cfg.StoreBackend))

	opponents := opponent.NewFactory(opponent.FactoryConfig{
		EnginePath:     cfg.StockfishPath,
		SkillLevel:     cfg.EngineSkillLevel,
		MoveTime:       time.Duration(cfg.EngineMoveTimeMS) * time.Millisecond,
		FallbackGreedy: true,
	}, logger.Named("opponent"))

	return &Deps{Store: st, Opponents: opponents}, nil
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("memory_store_selected", zap.String("hint", "sessions are lost on exit"))
		return memstore.New(), nil
	case config.BackendSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.DialectPostgres, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := redisstore.Dial(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
