package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store"
	"go.uber.org/zap"
)

var (
	ErrEmptyName     = errors.New("participant name is empty")
	ErrDuplicateName = errors.New("participants must have different names")
	ErrReservedName  = errors.New("name is reserved for the computer opponent")
)

// Resolver maps names to participants. Unknown names yield fresh participants
// that are persisted only at finalization.
type Resolver struct {
	store  store.ParticipantStore
	now    func() time.Time
	logger *zap.Logger
}

func NewResolver(ps store.ParticipantStore, now func() time.Time, logger *zap.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: ps, now: now, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, name string) (*domain.Participant, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	p, err := r.store.FindParticipant(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find participant %q: %w", name, err)
	}
	if p != nil {
		return p, nil
	}
	r.logger.Debug("participant_new", zap.String("name", name))
	return domain.NewParticipant(name, r.now()), nil
}

// SubmitSingle resolves the human and the automated opponent.
func (r *Resolver) SubmitSingle(ctx context.Context, st *State, name string) (Outcome, error) {
	name = domain.NormalizeName(name)
	switch {
	case name == "":
		return OutcomeDeferred, nil
	case name == domain.AutomatedOpponent:
		return OutcomeRejected, ErrReservedName
	}
	human, err := r.Resolve(ctx, name)
	if err != nil {
		return OutcomeRejected, err
	}
	ai, err := r.Resolve(ctx, domain.AutomatedOpponent)
	if err != nil {
		return OutcomeRejected, err
	}
	st.Participant1, st.Participant2 = human, ai
	return OutcomeAdvanced, nil
}

// SubmitMulti resolves both players. The first name plays White.
func (r *Resolver) SubmitMulti(ctx context.Context, st *State, first, second string) (Outcome, error) {
	first, second = domain.NormalizeName(first), domain.NormalizeName(second)
	switch {
	case first == "" || second == "":
		return OutcomeDeferred, nil
	case first == second:
		return OutcomeRejected, ErrDuplicateName
	case first == domain.AutomatedOpponent || second == domain.AutomatedOpponent:
		return OutcomeRejected, ErrReservedName
	}
	p1, err := r.Resolve(ctx, first)
	if err != nil {
		return OutcomeRejected, err
	}
	p2, err := r.Resolve(ctx, second)
	if err != nil {
		return OutcomeRejected, err
	}
	st.Participant1, st.Participant2 = p1, p2
	st.Colour1, st.Colour2 = domain.White, domain.Black
	return OutcomeAdvanced, nil
}
