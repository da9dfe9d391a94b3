package flow

import (
	"context"
	"testing"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store/memstore"
	"github.com/stretchr/testify/require"
)

func TestNewControllerNeedsStores(t *testing.T) {
	_, err := NewController(Options{})
	require.ErrorIs(t, err, ErrMissingStore)
}

func TestSinglePlayerHappyPath(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, StepWelcome, h.ctrl.Step())

	require.Equal(t, OutcomeAdvanced, h.handle(t, Event{Command: CmdChooseNew}).Outcome)
	res := h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Equal(t, StepSelectParticipant, res.Step)
	require.Equal(t, []Step{StepSelectParticipant, StepSelectColour, StepActivePlay}, h.ctrl.State().Steps.Steps())

	res = h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Alice"}})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Equal(t, StepSelectColour, res.Step)
	st := h.ctrl.State()
	require.Equal(t, "Alice", st.Participant1.Name)
	require.Equal(t, domain.AutomatedOpponent, st.Participant2.Name)

	res = h.handle(t, Event{Command: CmdSelectColour, Colour: domain.White})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Equal(t, StepActivePlay, res.Step)
	require.Equal(t, domain.White, st.Colour1)
	require.Equal(t, domain.Black, st.Colour2)
	require.Equal(t, []domain.Colour{domain.Black}, h.factory.colours)
	require.Nil(t, res.Move, "white moves first, the opponent waits")

	res = h.handle(t, Event{Command: CmdMove, Move: "e4"})
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Equal(t, "e2e4", res.Move.UCI)
	require.NotEmpty(t, res.Move.ReplyUCI)
	require.Equal(t, domain.White, res.Move.NextColour)
	require.Len(t, st.Board.Moves(), 2)

	res = h.handle(t, Event{Command: CmdClose})
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.NotNil(t, res.Final)
	require.Equal(t, "rec-1", res.Final.RecordID)

	alice := h.participant(t, "Alice")
	require.Equal(t, 1, alice.Played)
	require.Equal(t, 1, h.participant(t, domain.AutomatedOpponent).Played)

	rec, err := h.store.GetSession(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NoError(t, rec.Validate())
	require.Len(t, rec.Moves, 2)
	require.Empty(t, h.warnings)
}

func TestOpponentMovesFirstWhenHumanIsBlack(t *testing.T) {
	h := newHarness(t)
	h.handle(t, Event{Command: CmdChooseNew})
	h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer})
	h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Alice"}})

	res := h.handle(t, Event{Command: CmdSelectColour, Colour: domain.Black})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.NotNil(t, res.Move)
	require.NotEmpty(t, res.Move.ReplyUCI)
	require.Equal(t, domain.Black, h.ctrl.State().Board.Turn())
}

func startSinglePlayerAsWhite(t *testing.T, h *harness) {
	t.Helper()
	h.handle(t, Event{Command: CmdChooseNew})
	h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer})
	h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Alice"}})
	h.handle(t, Event{Command: CmdSelectColour, Colour: domain.White})
}

func TestFailedReplyIsRetriedBeforeHumanMoves(t *testing.T) {
	h := newHarness(t)
	h.factory.replyFailures = 1
	startSinglePlayerAsWhite(t, h)

	res := h.handle(t, Event{Command: CmdMove, Move: "e4"})
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, SourceOpponent, res.Warnings[0].Source)
	require.Equal(t, domain.Black, h.ctrl.State().Board.Turn())

	res = h.handle(t, Event{Command: CmdMove, Move: "Nf3"})
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Empty(t, res.Warnings)
	require.NotEmpty(t, res.Move.CatchUpUCI)
	require.Equal(t, "g1f3", res.Move.UCI)
	require.NotEmpty(t, res.Move.ReplyUCI)

	moves := h.ctrl.State().Board.Moves()
	require.Len(t, moves, 4)
	require.Equal(t, "e2e4", moves[0])
	require.Equal(t, res.Move.CatchUpUCI, moves[1])
	require.Equal(t, "g1f3", moves[2])
}

func TestHumanCannotMoveForStalledOpponent(t *testing.T) {
	h := newHarness(t)
	h.factory.replyFailures = 10
	startSinglePlayerAsWhite(t, h)

	h.handle(t, Event{Command: CmdMove, Move: "e4"})
	res := h.handle(t, Event{Command: CmdMove, Move: "e5"})
	require.Equal(t, OutcomeRejected, res.Outcome)
	require.ErrorIs(t, res.Reason, ErrNotYourTurn)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, []string{"e2e4"}, h.ctrl.State().Board.Moves())
	require.Equal(t, StepActivePlay, res.Step)
}

func TestMultiplayerDuplicateNames(t *testing.T) {
	h := newHarness(t)
	h.handle(t, Event{Command: CmdChooseNew})
	h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeMultiplayer})

	res := h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Bob", "Bob"}})
	require.Equal(t, OutcomeRejected, res.Outcome)
	require.ErrorIs(t, res.Reason, ErrDuplicateName)
	require.Equal(t, StepSelectParticipant, res.Step)
	st := h.ctrl.State()
	require.Nil(t, st.Participant1)
	require.Nil(t, st.Participant2)

	res = h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Bob", ""}})
	require.Equal(t, OutcomeDeferred, res.Outcome)
	require.Equal(t, StepSelectParticipant, res.Step)
}

func TestMultiplayerGameToCheckmate(t *testing.T) {
	h := newHarness(t)
	carol := domain.NewParticipant("Carol", fixedNow)
	carol.Played, carol.Won = 2, 2
	h.seed(t, carol)

	h.handle(t, Event{Command: CmdChooseNew})
	h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeMultiplayer})
	res := h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Carol", "Dave"}})
	require.Equal(t, StepActivePlay, res.Step)
	require.Empty(t, h.factory.colours)

	var last Result
	for _, mv := range []string{"f3", "e5", "g4", "Qh4"} {
		last = h.handle(t, Event{Command: CmdMove, Move: mv})
		require.Equal(t, OutcomeApplied, last.Outcome, mv)
	}
	require.True(t, last.Move.Finished)
	require.Equal(t, "Black won by checkmate", last.Move.Result)

	res = h.handle(t, Event{Command: CmdMove, Move: "e4"})
	require.Equal(t, OutcomeRejected, res.Outcome)

	res = h.handle(t, Event{Command: CmdClose})
	require.Equal(t, "Dave", res.Final.Winner.Name)

	c := h.participant(t, "Carol")
	require.Equal(t, 3, c.Played)
	require.Equal(t, 2, c.Won)
	require.Equal(t, 1, c.Lost)
	d := h.participant(t, "Dave")
	require.Equal(t, 1, d.Played)
	require.Equal(t, 1, d.Won)
}

func TestResumeFromRecord(t *testing.T) {
	h := newHarness(t)
	rec := multiplayerRecord()
	require.NoError(t, h.store.SaveSession(context.Background(), rec))

	require.Equal(t, OutcomeAdvanced, h.handle(t, Event{Command: CmdChooseLoad}).Outcome)
	require.Equal(t, OutcomeDeferred, h.handle(t, Event{Command: CmdSelectRecord}).Outcome)

	sessions, err := h.ctrl.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	res := h.handle(t, Event{Command: CmdSelectRecord, Record: sessions[0]})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Equal(t, StepActivePlay, res.Step)
	st := h.ctrl.State()
	require.Equal(t, domain.ModeMultiplayer, st.Mode)
	require.Equal(t, domain.White, st.Colour1)
	require.Equal(t, domain.Black, st.Colour2)
	require.Equal(t, "Carol", st.Participant1.Name)

	// setup commands no longer apply
	require.Equal(t, OutcomeIgnored, h.handle(t, Event{Command: CmdSelectRecord, Record: rec}).Outcome)
	require.Equal(t, OutcomeIgnored, h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer}).Outcome)

	h.handle(t, Event{Command: CmdMove, Move: "Nf3"})
	final := h.handle(t, Event{Command: CmdClose}).Final
	require.Equal(t, rec.ID, final.RecordID)

	saved, err := h.store.GetSession(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, saved.Moves)
	require.Equal(t, domain.Black, saved.Turn)
}

func TestResumeSinglePlayerWithOpponentToMove(t *testing.T) {
	h := newHarness(t)
	rec := &domain.SessionRecord{
		ID: "s1", Mode: domain.ModeSinglePlayer,
		Colour1: domain.White, Colour2: domain.Black,
		Player1: "Alice", Player2: domain.AutomatedOpponent,
		Moves: []string{"e2e4"},
	}
	res := h.handle(t, Event{Command: CmdChooseLoad})
	require.Equal(t, StepSelectRecord, res.Step)
	res = h.handle(t, Event{Command: CmdSelectRecord, Record: rec})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Equal(t, []domain.Colour{domain.Black}, h.factory.colours)
	require.NotNil(t, res.Move)
	require.NotEmpty(t, res.Move.ReplyUCI)
	require.Equal(t, domain.White, h.ctrl.State().Board.Turn())
}

func TestInvalidRecordSelectionIsRejected(t *testing.T) {
	h := newHarness(t)
	h.handle(t, Event{Command: CmdChooseLoad})
	res := h.handle(t, Event{Command: CmdSelectRecord, Record: &domain.SessionRecord{ID: "bad"}})
	require.Equal(t, OutcomeRejected, res.Outcome)
	require.ErrorIs(t, res.Reason, domain.ErrInvalidRecord)
	require.Equal(t, StepSelectRecord, res.Step)
}

func TestOutOfStepEventsAreIgnored(t *testing.T) {
	h := newHarness(t)
	for _, ev := range []Event{
		{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer},
		{Command: CmdSubmitParticipants, Names: [2]string{"Alice"}},
		{Command: CmdSelectColour, Colour: domain.White},
		{Command: CmdMove, Move: "e4"},
	} {
		res := h.handle(t, ev)
		require.Equal(t, OutcomeIgnored, res.Outcome, ev.Command.String())
		require.Equal(t, StepWelcome, res.Step)
	}
	_, err := h.ctrl.Handle(context.Background(), Event{Command: Command(99)})
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestInvalidModeIsInvariant(t *testing.T) {
	h := newHarness(t)
	h.handle(t, Event{Command: CmdChooseNew})
	res, err := h.ctrl.Handle(context.Background(), Event{Command: CmdSelectMode, Mode: domain.Mode(5)})
	require.ErrorIs(t, err, ErrInvariant)
	require.ErrorIs(t, err, ErrInvalidMode)
	require.Equal(t, StepSelectMode, res.Step)
}

func TestWarningsReachSink(t *testing.T) {
	h := newHarness(t)
	h.renderer.modeErr = errBoom
	h.factory.err = errBoom

	h.handle(t, Event{Command: CmdChooseNew})
	res := h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeSinglePlayer})
	require.Len(t, res.Warnings, 1)
	h.handle(t, Event{Command: CmdSubmitParticipants, Names: [2]string{"Alice"}})
	res = h.handle(t, Event{Command: CmdSelectColour, Colour: domain.White})
	require.Equal(t, OutcomeAdvanced, res.Outcome)
	require.Len(t, res.Warnings, 1)

	require.Len(t, h.warnings, 2)
	require.Equal(t, SourceRenderer, h.warnings[0].Source)
	require.Equal(t, SourceOpponent, h.warnings[1].Source)

	// without an opponent the human moves both sides
	res = h.handle(t, Event{Command: CmdMove, Move: "e4"})
	require.Empty(t, res.Move.ReplyUCI)
	res = h.handle(t, Event{Command: CmdMove, Move: "e5"})
	require.Equal(t, OutcomeApplied, res.Outcome)
}

func TestCloseBeforeSetupSkipsFinalization(t *testing.T) {
	h := newHarness(t)
	h.handle(t, Event{Command: CmdChooseNew})
	res := h.handle(t, Event{Command: CmdClose})
	require.True(t, res.Final.Skipped)
	require.Len(t, res.Warnings, 1)
	require.ErrorIs(t, res.Warnings[0], ErrNothingToFinalize)

	require.Equal(t, OutcomeIgnored, h.handle(t, Event{Command: CmdClose}).Outcome)
	require.Equal(t, OutcomeIgnored, h.handle(t, Event{Command: CmdSelectMode, Mode: domain.ModeMultiplayer}).Outcome)
}

func TestCloseReportsStoreFailures(t *testing.T) {
	fs := &failingStore{Store: memstore.New(), failSessions: true}
	ctrl, err := NewController(Options{Participants: fs, Sessions: fs, Clock: clock})
	require.NoError(t, err)
	ctx := context.Background()

	for _, ev := range []Event{
		{Command: CmdChooseNew},
		{Command: CmdSelectMode, Mode: domain.ModeMultiplayer},
		{Command: CmdSubmitParticipants, Names: [2]string{"Carol", "Dave"}},
	} {
		_, err := ctrl.Handle(ctx, ev)
		require.NoError(t, err)
	}
	res, err := ctrl.Handle(ctx, Event{Command: CmdClose})
	require.ErrorIs(t, err, errBoom)
	require.NotNil(t, res.Final)

	p, err := fs.FindParticipant(ctx, "Dave")
	require.NoError(t, err)
	require.Equal(t, 1, p.Played)
}
