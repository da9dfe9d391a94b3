package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ErrAlreadyFinalized  = errors.New("session already finalized")
	ErrNothingToFinalize = errors.New("session ended before setup completed")
)

// Report summarises one finalization pass.
type Report struct {
	Skipped    bool
	RecordID   string
	Moves      int
	Checkmated domain.Colour
	Winner     *domain.Participant
	Loser      *domain.Participant

	// Credited is false when the outcome was already credited by an earlier session.
	Credited bool
}

type Finalizer struct {
	participants store.ParticipantStore
	sessions     store.SessionStore
	now          func() time.Time
	newID        func() string
	logger       *zap.Logger
}

func NewFinalizer(ps store.ParticipantStore, ss store.SessionStore, now func() time.Time, newID func() string, logger *zap.Logger) *Finalizer {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finalizer{participants: ps, sessions: ss, now: now, newID: newID, logger: logger}
}

// Finalize persists the record and the participants' statistics. It runs at
// most once per State and is skipped when participants or board were never set.
// Store failures do not stop the pass; they are combined into the returned error.
func (f *Finalizer) Finalize(ctx context.Context, st *State) (*Report, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvariant)
	}
	if st.Finalized {
		return nil, ErrAlreadyFinalized
	}
	st.Finalized = true

	if st.Participant1 == nil || st.Participant2 == nil || st.Board == nil {
		f.logger.Warn("session_finalize_skipped",
			zap.Bool("participant1", st.Participant1 != nil),
			zap.Bool("participant2", st.Participant2 != nil),
			zap.Bool("board", st.Board != nil))
		return &Report{Skipped: true}, nil
	}

	now := f.now()
	rec := st.Record
	if rec == nil {
		rec = f.recordFromState(st, now)
		st.Record = rec
	}
	report := &Report{RecordID: rec.ID}

	var errs error
	var board Board = st.Board
	rec.Moves = board.Moves()
	rec.Turn = board.Turn()
	rec.UpdatedAt = now
	report.Moves = len(rec.Moves)
	if err := f.sessions.SaveSession(ctx, rec); err != nil {
		f.logger.Error("session_save_failed", zap.String("id", rec.ID), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("save session %s: %w", rec.ID, err))
	}

	p1, p2 := st.Participant1, st.Participant2
	mated1 := board.IsCheckmate(st.Colour1)
	mated2 := board.IsCheckmate(st.Colour2)
	switch {
	case mated1 && !mated2:
		report.Checkmated, report.Winner, report.Loser = st.Colour1, p2, p1
	case mated2 && !mated1:
		report.Checkmated, report.Winner, report.Loser = st.Colour2, p1, p2
	}
	if report.Winner != nil && !st.EndedAtLoad {
		report.Winner.RecordWin()
		report.Loser.RecordLoss()
		report.Credited = true
	}

	for _, p := range []*domain.Participant{p1, p2} {
		p.GamePlayed()
		p.UpdatedAt = now
		if err := f.participants.SaveParticipant(ctx, p); err != nil {
			f.logger.Error("participant_save_failed", zap.String("name", p.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("save participant %s: %w", p.Name, err))
		}
	}

	f.logger.Info("session_finalized",
		zap.String("id", rec.ID),
		zap.Int("moves", report.Moves),
		zap.Stringer("checkmated", report.Checkmated),
		zap.Int("errors", len(multierr.Errors(errs))))
	return report, errs
}

// recordFromState builds a record from whatever the session holds. Fields the
// setup never reached stay zero.
func (f *Finalizer) recordFromState(st *State, now time.Time) *domain.SessionRecord {
	return &domain.SessionRecord{
		ID:        f.newID(),
		Mode:      st.Mode,
		Colour1:   st.Colour1,
		Colour2:   st.Colour2,
		Player1:   st.Participant1.String(),
		Player2:   st.Participant2.String(),
		CreatedAt: now,
	}
}
