package flow

import (
	"context"
	"fmt"

	"github.com/park285/chessmaster/internal/domain"
	"go.uber.org/zap"
)

type Loader struct {
	resolver  *Resolver
	reloader  Reloader
	opponents OpponentFactory
	renderer  Renderer
	logger    *zap.Logger
}

func NewLoader(resolver *Resolver, reloader Reloader, opponents OpponentFactory, renderer Renderer, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{resolver: resolver, reloader: reloader, opponents: opponents, renderer: renderer, logger: logger}
}

// LoadOrSelect resumes rec into st and jumps straight to active play. It
// reports false without touching st when a record was already chosen or rec
// is nil. Invalid records are rejected with domain.ErrInvalidRecord.
func (l *Loader) LoadOrSelect(ctx context.Context, st *State, rec *domain.SessionRecord) (bool, []Warning, error) {
	if st.Record != nil || rec == nil {
		return false, nil, nil
	}
	if err := rec.Validate(); err != nil {
		return false, nil, err
	}
	p1, err := l.resolver.Resolve(ctx, rec.Player1)
	if err != nil {
		return false, nil, err
	}
	p2, err := l.resolver.Resolve(ctx, rec.Player2)
	if err != nil {
		return false, nil, err
	}
	board, err := l.reloader.Reload(ctx, rec)
	if err != nil {
		l.logger.Warn("session_reload_failed", zap.String("id", rec.ID), zap.Error(err))
		return false, nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	steps, err := NewStepList(rec.Mode)
	if err != nil {
		return false, nil, err
	}
	steps.resume()

	st.Record = rec.Clone()
	st.Mode = rec.Mode
	st.Colour1, st.Colour2 = rec.Colour1, rec.Colour2
	st.Participant1, st.Participant2 = p1, p2
	st.Board = board
	st.EndedAtLoad = board.Finished()
	st.Steps = steps
	st.Active = steps.Current()
	l.logger.Info("session_loaded",
		zap.String("id", rec.ID),
		zap.Stringer("mode", rec.Mode),
		zap.Int("moves", len(rec.Moves)),
		zap.Bool("ended", st.EndedAtLoad))

	warnings := notifyMode(l.renderer, st.Mode, l.logger)
	if st.Mode == domain.ModeSinglePlayer {
		human := st.HumanColour()
		warnings = append(warnings, bindOpponent(ctx, st, human.Opposite(), l.opponents, l.renderer, l.logger)...)
	}
	return true, warnings, nil
}
