package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/chessmaster/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrInvalidColour     = errors.New("colour must be White or Black")
	ErrNoOpponentFactory = errors.New("no opponent factory configured")
)

type ColourAssigner struct {
	opponents OpponentFactory
	renderer  Renderer
	logger    *zap.Logger
}

func NewColourAssigner(opponents OpponentFactory, renderer Renderer, logger *zap.Logger) *ColourAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ColourAssigner{opponents: opponents, renderer: renderer, logger: logger}
}

// Assign gives the human colour and the opponent its opposite, then sets up
// the board and the opponent. Setup failures come back as warnings.
func (a *ColourAssigner) Assign(ctx context.Context, st *State, colour domain.Colour) (Outcome, []Warning, error) {
	if st.Mode != domain.ModeSinglePlayer || st.Participant1 == nil || st.Participant2 == nil {
		return OutcomeRejected, nil, fmt.Errorf("%w: colour assignment before single-player participants", ErrInvariant)
	}
	if !colour.Valid() {
		return OutcomeRejected, nil, ErrInvalidColour
	}
	st.Colour1 = colour
	st.Colour2 = colour.Opposite()
	st.ensureBoard()
	a.logger.Info("colour_assigned",
		zap.String("human", st.Participant1.String()),
		zap.Stringer("colour", st.Colour1))
	return OutcomeAdvanced, bindOpponent(ctx, st, st.Colour2, a.opponents, a.renderer, a.logger), nil
}

// bindOpponent replaces any opponent in st with a new one playing colour.
func bindOpponent(ctx context.Context, st *State, colour domain.Colour, f OpponentFactory, r Renderer, logger *zap.Logger) []Warning {
	if st.Opponent != nil {
		if err := st.Opponent.Close(); err != nil {
			logger.Warn("opponent_close_failed", zap.Error(err))
		}
		st.Opponent = nil
	}
	if f == nil {
		return []Warning{{Source: SourceOpponent, Err: ErrNoOpponentFactory}}
	}
	op, err := f.Init(ctx, st.Board, colour)
	if err != nil {
		logger.Warn("opponent_init_failed", zap.Stringer("colour", colour), zap.Error(err))
		return []Warning{{Source: SourceOpponent, Err: fmt.Errorf("init opponent: %w", err)}}
	}
	st.Opponent = op
	logger.Info("opponent_bound", zap.String("opponent", op.Name()), zap.Stringer("colour", colour))

	if r == nil {
		return nil
	}
	if err := r.BindOpponent(op); err != nil {
		logger.Warn("renderer_bind_failed", zap.Error(err))
		return []Warning{{Source: SourceRenderer, Err: err}}
	}
	return nil
}
