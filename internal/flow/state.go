// Package flow drives a chess session from the welcome screen through setup
// or resume into active play, and performs end-of-session bookkeeping.
//
// Every component works on an explicit *State. A Controller owns one State and
// maps user commands onto component operations; it is not safe for concurrent use.
package flow

import (
	"context"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/opponent"
	"github.com/park285/chessmaster/internal/rules"
)

// Board is the read side of the rules engine used by finalization.
type Board interface {
	Turn() domain.Colour
	IsCheckmate(c domain.Colour) bool
	Moves() []string
}

type OpponentFactory interface {
	Init(ctx context.Context, board *rules.Board, colour domain.Colour) (opponent.Opponent, error)
}

// Renderer receives game-mode and opponent-binding notifications. Its errors
// are reported as warnings and never stop the flow.
type Renderer interface {
	SetGameMode(mode domain.Mode) error
	BindOpponent(op opponent.Opponent) error
}

// Reloader rebuilds the live board of a persisted session.
type Reloader interface {
	Reload(ctx context.Context, rec *domain.SessionRecord) (*rules.Board, error)
}

// State is the single mutable session aggregate.
type State struct {
	Mode         domain.Mode
	Participant1 *domain.Participant
	Participant2 *domain.Participant
	Colour1      domain.Colour
	Colour2      domain.Colour

	Board    *rules.Board
	Opponent opponent.Opponent
	Record   *domain.SessionRecord
	// EndedAtLoad marks a resumed record whose game was already over; its
	// result was credited when it was first saved.
	EndedAtLoad bool

	Steps     *StepList
	Active    Step
	Finalized bool
}

func NewState() *State {
	return &State{Active: StepWelcome}
}

// HumanColour is the colour of the human in a single-player session: Colour1
// when Participant2 is the automated opponent, Colour2 otherwise.
func (s *State) HumanColour() domain.Colour {
	if s.Mode != domain.ModeSinglePlayer {
		return domain.NoColour
	}
	if s.Participant2.IsAutomated() {
		return s.Colour1
	}
	return s.Colour2
}

// Holder returns the participant playing c, or nil.
func (s *State) Holder(c domain.Colour) *domain.Participant {
	switch {
	case !c.Valid():
		return nil
	case s.Colour1 == c:
		return s.Participant1
	case s.Colour2 == c:
		return s.Participant2
	default:
		return nil
	}
}

func (s *State) ensureBoard() {
	if s.Board == nil {
		s.Board = rules.NewBoard()
	}
}
