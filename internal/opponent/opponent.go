// Package opponent provides the computer side of single-player sessions.
package opponent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/opponent/uci"
	"github.com/park285/chessmaster/internal/rules"
	"go.uber.org/zap"
)

var (
	ErrNoBoard   = errors.New("opponent needs a board")
	ErrNotToMove = errors.New("opponent is not on move")
	ErrNoMoves   = errors.New("no legal moves")
)

// Opponent chooses moves for one colour. Reply does not mutate the board.
type Opponent interface {
	Name() string
	Colour() domain.Colour
	Reply(ctx context.Context, board *rules.Board) (string, error)
	Close() error
}

type FactoryConfig struct {
	EnginePath string
	SkillLevel int
	MoveTime   time.Duration
	// FallbackGreedy substitutes the greedy opponent when the engine cannot start.
	FallbackGreedy bool
}

// Factory builds opponents for new and resumed sessions.
type Factory struct {
	cfg    FactoryConfig
	logger *zap.Logger
}

func NewFactory(cfg FactoryConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.EnginePath = strings.TrimSpace(cfg.EnginePath)
	if cfg.MoveTime <= 0 {
		cfg.MoveTime = 500 * time.Millisecond
	}
	return &Factory{cfg: cfg, logger: logger}
}

// Init binds a new opponent to colour. The board is only checked here; every
// Reply receives the live board.
func (f *Factory) Init(ctx context.Context, board *rules.Board, colour domain.Colour) (Opponent, error) {
	if board == nil {
		return nil, ErrNoBoard
	}
	if !colour.Valid() {
		return nil, fmt.Errorf("invalid opponent colour %q", colour)
	}
	if f.cfg.EnginePath == "" {
		return NewGreedy(colour), nil
	}

	session, err := uci.Start(ctx, f.cfg.EnginePath, uci.Options{SkillLevel: f.cfg.SkillLevel}, f.logger)
	if err != nil {
		if f.cfg.FallbackGreedy {
			f.logger.Warn("engine_unavailable_fallback_greedy", zap.String("path", f.cfg.EnginePath), zap.Error(err))
			return NewGreedy(colour), nil
		}
		return nil, fmt.Errorf("start engine: %w", err)
	}
	return &Engine{
		session: session,
		colour:  colour,
		limits:  uci.Limits{MoveTimeMillis: int(f.cfg.MoveTime / time.Millisecond)},
	}, nil
}

// Engine delegates move choice to a UCI engine process.
type Engine struct {
	session *uci.Session
	colour  domain.Colour
	limits  uci.Limits
}

func (e *Engine) Name() string          { return "engine" }
func (e *Engine) Colour() domain.Colour { return e.colour }

func (e *Engine) Reply(ctx context.Context, board *rules.Board) (string, error) {
	if board == nil {
		return "", ErrNoBoard
	}
	if board.Turn() != e.colour {
		return "", ErrNotToMove
	}
	return e.session.BestMove(ctx, board.Moves(), e.limits)
}

func (e *Engine) Close() error { return e.session.Close() }
