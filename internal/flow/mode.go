package flow

import (
	"github.com/park285/chessmaster/internal/domain"
	"go.uber.org/zap"
)

type ModeSelector struct {
	renderer Renderer
	logger   *zap.Logger
}

func NewModeSelector(renderer Renderer, logger *zap.Logger) *ModeSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModeSelector{renderer: renderer, logger: logger}
}

// Select fixes the session mode, builds its step list and activates the first
// step. An invalid mode changes nothing.
func (m *ModeSelector) Select(st *State, mode domain.Mode) ([]Warning, error) {
	steps, err := NewStepList(mode)
	if err != nil {
		m.logger.Error("mode_select_failed", zap.Int("mode", int(mode)), zap.Error(err))
		return nil, err
	}
	st.Mode = mode
	st.Steps = steps
	st.Active = steps.Current()
	m.logger.Info("mode_selected", zap.Stringer("mode", mode))

	return notifyMode(m.renderer, mode, m.logger), nil
}

func notifyMode(r Renderer, mode domain.Mode, logger *zap.Logger) []Warning {
	if r == nil {
		return nil
	}
	if err := r.SetGameMode(mode); err != nil {
		logger.Warn("renderer_mode_failed", zap.Stringer("mode", mode), zap.Error(err))
		return []Warning{{Source: SourceRenderer, Err: err}}
	}
	return nil
}
