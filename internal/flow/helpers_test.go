package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/opponent"
	"github.com/park285/chessmaster/internal/rules"
	"github.com/park285/chessmaster/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

var (
	errBoom   = errors.New("boom")
	fixedNow  = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	foolsMate = []string{"f2f3", "e7e5", "g2g4", "d8h4"}
)

func clock() time.Time { return fixedNow }

type fakeRenderer struct {
	modeErr error
	bindErr error
	modes   []domain.Mode
	bound   []opponent.Opponent
}

func (r *fakeRenderer) SetGameMode(mode domain.Mode) error {
	r.modes = append(r.modes, mode)
	return r.modeErr
}

func (r *fakeRenderer) BindOpponent(op opponent.Opponent) error {
	r.bound = append(r.bound, op)
	return r.bindErr
}

type fakeFactory struct {
	err error
	// replyFailures makes the bound opponent fail that many replies before it recovers.
	replyFailures int
	colours []domain.Colour
	boards  []*rules.Board
}

func (f *fakeFactory) Init(_ context.Context, board *rules.Board, colour domain.Colour) (opponent.Opponent, error) {
	f.colours = append(f.colours, colour)
	f.boards = append(f.boards, board)
	if f.err != nil {
		return nil, f.err
	}
	if f.replyFailures > 0 {
		return &flakyOpponent{Greedy: opponent.NewGreedy(colour), failures: f.replyFailures}, nil
	}
	return opponent.NewGreedy(colour), nil
}

type flakyOpponent struct {
	*opponent.Greedy
	failures int
}

func (o *flakyOpponent) Reply(ctx context.Context, board *rules.Board) (string, error) {
	if o.failures > 0 {
		o.failures--
		return "", errBoom
	}
	return o.Greedy.Reply(ctx, board)
}

type failingStore struct {
	*memstore.Store
	failFind         bool
	failSessions     bool
	failParticipants bool
}

func (s *failingStore) FindParticipant(ctx context.Context, name string) (*domain.Participant, error) {
	if s.failFind {
		return nil, errBoom
	}
	return s.Store.FindParticipant(ctx, name)
}

func (s *failingStore) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	if s.failSessions {
		return errBoom
	}
	return s.Store.SaveSession(ctx, rec)
}

func (s *failingStore) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	if s.failParticipants {
		return errBoom
	}
	return s.Store.SaveParticipant(ctx, p)
}

type harness struct {
	ctrl     *Controller
	store    *memstore.Store
	renderer *fakeRenderer
	factory  *fakeFactory
	warnings []Warning
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: memstore.New(), renderer: &fakeRenderer{}, factory: &fakeFactory{}}
	ctrl, err := NewController(Options{
		Participants: h.store,
		Sessions:     h.store,
		Opponents:    h.factory,
		Renderer:     h.renderer,
		WarningSink:  func(w Warning) { h.warnings = append(h.warnings, w) },
		Clock:        clock,
		NewID:        func() string { return "rec-1" },
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) handle(t *testing.T, ev Event) Result {
	t.Helper()
	res, err := h.ctrl.Handle(context.Background(), ev)
	require.NoError(t, err)
	return res
}

func (h *harness) seed(t *testing.T, p *domain.Participant) {
	t.Helper()
	require.NoError(t, h.store.SaveParticipant(context.Background(), p))
}

func (h *harness) participant(t *testing.T, name string) *domain.Participant {
	t.Helper()
	p, err := h.store.FindParticipant(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, p, name)
	return p
}
