package flow

import (
	"errors"
	"fmt"

	"github.com/park285/chessmaster/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrInvariant marks controller bugs. Callers should surface it and stop.
	ErrInvariant       = errors.New("flow invariant violated")
	ErrStepNotInList   = errors.New("step is not the active member of the step list")
	ErrAdvanceTerminal = errors.New("cannot advance past the terminal step")
	ErrInvalidMode     = errors.New("invalid game mode")
)

type Step int

const (
	StepNone Step = iota
	StepWelcome
	StepSelectMode
	StepSelectRecord
	StepSelectParticipant
	StepSelectColour
	StepActivePlay
)

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepSelectMode:
		return "select_mode"
	case StepSelectRecord:
		return "select_record"
	case StepSelectParticipant:
		return "select_participant"
	case StepSelectColour:
		return "select_colour"
	case StepActivePlay:
		return "active_play"
	default:
		return "none"
	}
}

// StepList is the mode-specific setup sequence. The cursor only moves forward
// by one, and StepActivePlay is always last.
type StepList struct {
	steps  []Step
	cursor int
}

func NewStepList(mode domain.Mode) (*StepList, error) {
	switch mode {
	case domain.ModeSinglePlayer:
		return &StepList{steps: []Step{StepSelectParticipant, StepSelectColour, StepActivePlay}}, nil
	case domain.ModeMultiplayer:
		return &StepList{steps: []Step{StepSelectParticipant, StepActivePlay}}, nil
	default:
		return nil, fmt.Errorf("%w: %w: %d", ErrInvariant, ErrInvalidMode, int(mode))
	}
}

func (l *StepList) Len() int { return len(l.steps) }

func (l *StepList) Steps() []Step { return append([]Step(nil), l.steps...) }

func (l *StepList) Current() Step { return l.steps[l.cursor] }

func (l *StepList) Terminal() Step { return l.steps[len(l.steps)-1] }

func (l *StepList) AtTerminal() bool { return l.cursor == len(l.steps)-1 }

// Advance moves from current to the next step. current must be the step under the cursor.
func (l *StepList) Advance(current Step) (Step, error) {
	if l.steps[l.cursor] != current {
		return l.Current(), fmt.Errorf("%w: %w: %s (active %s)", ErrInvariant, ErrStepNotInList, current, l.Current())
	}
	if l.AtTerminal() {
		return l.Current(), fmt.Errorf("%w: %w", ErrInvariant, ErrAdvanceTerminal)
	}
	l.cursor++
	return l.steps[l.cursor], nil
}

// resume places the cursor on the terminal step for sessions loaded from a record.
func (l *StepList) resume() {
	l.cursor = len(l.steps) - 1
}

// Sequencer advances a State along its StepList.
type Sequencer struct {
	logger *zap.Logger
}

func NewSequencer(logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{logger: logger}
}

func (q *Sequencer) Advance(st *State, current Step) error {
	if st.Steps == nil {
		err := fmt.Errorf("%w: %w: no step list for %s", ErrInvariant, ErrStepNotInList, current)
		q.logger.Error("step_advance_failed", zap.Stringer("step", current), zap.Error(err))
		return err
	}
	next, err := st.Steps.Advance(current)
	if err != nil {
		q.logger.Error("step_advance_failed", zap.Stringer("step", current), zap.Error(err))
		return err
	}
	st.Active = next
	q.logger.Debug("step_advanced", zap.Stringer("from", current), zap.Stringer("to", next))
	return nil
}
