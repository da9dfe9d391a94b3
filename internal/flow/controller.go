package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/rules"
	"github.com/park285/chessmaster/internal/store"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingStore   = errors.New("participant and session stores are required")
	ErrNotYourTurn    = errors.New("the computer has not moved yet")
)

type Command int

const (
	CmdChooseNew Command = iota + 1
	CmdChooseLoad
	CmdSelectMode
	CmdSubmitParticipants
	CmdSelectColour
	CmdSelectRecord
	CmdMove
	CmdClose
)

func (c Command) String() string {
	switch c {
	case CmdChooseNew:
		return "choose_new"
	case CmdChooseLoad:
		return "choose_load"
	case CmdSelectMode:
		return "select_mode"
	case CmdSubmitParticipants:
		return "submit_participants"
	case CmdSelectColour:
		return "select_colour"
	case CmdSelectRecord:
		return "select_record"
	case CmdMove:
		return "move"
	case CmdClose:
		return "close"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Event is one user action. Only the fields of its Command are read.
type Event struct {
	Command Command
	Mode    domain.Mode
	// Names holds the participant fields; single-player reads Names[0] only.
	Names  [2]string
	Colour domain.Colour
	Record *domain.SessionRecord
	Move   string
}

// MoveReport describes the moves played while handling one event.
type MoveReport struct {
	// CatchUpSAN is an opponent move owed from an earlier event, played before SAN.
	CatchUpSAN string
	CatchUpUCI string
	SAN        string
	UCI        string
	ReplySAN   string
	ReplyUCI   string
	Finished   bool
	Result     string
	NextColour domain.Colour
}

type Result struct {
	Outcome  Outcome
	Step     Step
	Reason   error
	Warnings []Warning
	Move     *MoveReport
	Final    *Report
}

type Options struct {
	Participants store.ParticipantStore
	Sessions     store.SessionStore
	Reloader     Reloader
	Opponents    OpponentFactory
	Renderer     Renderer
	Logger       *zap.Logger
	// WarningSink receives every warning as it happens, in addition to Result.Warnings.
	WarningSink func(Warning)
	Clock       func() time.Time
	NewID       func() string
}

type handler struct {
	// step is the step the command belongs to; StepNone accepts any step.
	step Step
	fn   func(ctx context.Context, ev Event) (Result, error)
}

// Controller owns one session State and dispatches commands through a fixed
// command table. It is not safe for concurrent use.
type Controller struct {
	st       *State
	handlers map[Command]handler

	participants store.ParticipantStore
	sessions     store.SessionStore

	modes     *ModeSelector
	sequencer *Sequencer
	resolver  *Resolver
	colours   *ColourAssigner
	loader    *Loader
	finalizer *Finalizer

	sink   func(Warning)
	logger *zap.Logger
}

func NewController(opts Options) (*Controller, error) {
	if opts.Participants == nil || opts.Sessions == nil {
		return nil, ErrMissingStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reloader := opts.Reloader
	if reloader == nil {
		reloader = rules.Replayer{}
	}
	resolver := NewResolver(opts.Participants, opts.Clock, logger)

	c := &Controller{
		st:           NewState(),
		participants: opts.Participants,
		sessions:     opts.Sessions,
		modes:        NewModeSelector(opts.Renderer, logger),
		sequencer:    NewSequencer(logger),
		resolver:     resolver,
		colours:      NewColourAssigner(opts.Opponents, opts.Renderer, logger),
		loader:       NewLoader(resolver, reloader, opts.Opponents, opts.Renderer, logger),
		finalizer:    NewFinalizer(opts.Participants, opts.Sessions, opts.Clock, opts.NewID, logger),
		sink:         opts.WarningSink,
		logger:       logger,
	}
	c.handlers = map[Command]handler{
		CmdChooseNew:          {step: StepWelcome, fn: c.chooseNew},
		CmdChooseLoad:         {step: StepWelcome, fn: c.chooseLoad},
		CmdSelectMode:         {step: StepSelectMode, fn: c.selectMode},
		CmdSubmitParticipants: {step: StepSelectParticipant, fn: c.submitParticipants},
		CmdSelectColour:       {step: StepSelectColour, fn: c.selectColour},
		CmdSelectRecord:       {step: StepSelectRecord, fn: c.selectRecord},
		CmdMove:               {step: StepActivePlay, fn: c.move},
		CmdClose:              {step: StepNone, fn: c.close},
	}
	return c, nil
}

// State exposes the session for display. Callers must not mutate it.
func (c *Controller) State() *State { return c.st }

func (c *Controller) Step() Step { return c.st.Active }

func (c *Controller) Participants(ctx context.Context) ([]*domain.Participant, error) {
	return c.participants.ListParticipants(ctx)
}

func (c *Controller) Sessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	return c.sessions.ListSessions(ctx)
}

// Handle dispatches ev. The returned error is non-nil only for invariant
// violations and finalization store failures; input problems are reported
// through Result.Outcome and Result.Reason.
func (c *Controller) Handle(ctx context.Context, ev Event) (Result, error) {
	h, ok := c.handlers[ev.Command]
	if !ok {
		return Result{Outcome: OutcomeIgnored, Step: c.st.Active}, fmt.Errorf("%w: %s", ErrUnknownCommand, ev.Command)
	}
	if c.st.Finalized || (h.step != StepNone && h.step != c.st.Active) {
		c.logger.Debug("flow_event_ignored", zap.Stringer("command", ev.Command), zap.Stringer("step", c.st.Active))
		return Result{Outcome: OutcomeIgnored, Step: c.st.Active}, nil
	}

	res, err := h.fn(ctx, ev)
	res.Step = c.st.Active
	for _, w := range res.Warnings {
		if c.sink != nil {
			c.sink(w)
		}
	}
	if err != nil && errors.Is(err, ErrInvariant) {
		c.logger.Error("flow_invariant", zap.Stringer("command", ev.Command), zap.Error(err))
	}
	c.logger.Debug("flow_event",
		zap.Stringer("command", ev.Command),
		zap.Stringer("outcome", res.Outcome),
		zap.Stringer("step", res.Step),
		zap.Int("warnings", len(res.Warnings)))
	return res, err
}

func (c *Controller) chooseNew(_ context.Context, _ Event) (Result, error) {
	c.st.Active = StepSelectMode
	return Result{Outcome: OutcomeAdvanced}, nil
}

func (c *Controller) chooseLoad(_ context.Context, _ Event) (Result, error) {
	c.st.Active = StepSelectRecord
	return Result{Outcome: OutcomeAdvanced}, nil
}

func (c *Controller) selectMode(_ context.Context, ev Event) (Result, error) {
	warnings, err := c.modes.Select(c.st, ev.Mode)
	if err != nil {
		return Result{Outcome: OutcomeRejected}, err
	}
	return Result{Outcome: OutcomeAdvanced, Warnings: warnings}, nil
}

func (c *Controller) submitParticipants(ctx context.Context, ev Event) (Result, error) {
	var (
		outcome Outcome
		reason  error
	)
	switch c.st.Mode {
	case domain.ModeSinglePlayer:
		outcome, reason = c.resolver.SubmitSingle(ctx, c.st, ev.Names[0])
	case domain.ModeMultiplayer:
		outcome, reason = c.resolver.SubmitMulti(ctx, c.st, ev.Names[0], ev.Names[1])
	default:
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("%w: %w: %d", ErrInvariant, ErrInvalidMode, int(c.st.Mode))
	}
	if outcome != OutcomeAdvanced {
		return Result{Outcome: outcome, Reason: reason}, nil
	}
	if err := c.sequencer.Advance(c.st, StepSelectParticipant); err != nil {
		return Result{Outcome: OutcomeRejected}, err
	}
	if c.st.Active == StepActivePlay {
		c.st.ensureBoard()
	}
	return Result{Outcome: OutcomeAdvanced}, nil
}

func (c *Controller) selectColour(ctx context.Context, ev Event) (Result, error) {
	outcome, warnings, err := c.colours.Assign(ctx, c.st, ev.Colour)
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			return Result{Outcome: outcome, Warnings: warnings}, err
		}
		return Result{Outcome: outcome, Reason: err, Warnings: warnings}, nil
	}
	if err := c.sequencer.Advance(c.st, StepSelectColour); err != nil {
		return Result{Outcome: OutcomeRejected, Warnings: warnings}, err
	}
	res := Result{Outcome: OutcomeAdvanced, Warnings: warnings}
	c.opponentTurn(ctx, &res)
	return res, nil
}

func (c *Controller) selectRecord(ctx context.Context, ev Event) (Result, error) {
	if ev.Record == nil {
		return Result{Outcome: OutcomeDeferred}, nil
	}
	loaded, warnings, err := c.loader.LoadOrSelect(ctx, c.st, ev.Record)
	switch {
	case err != nil && errors.Is(err, ErrInvariant):
		return Result{Outcome: OutcomeRejected, Warnings: warnings}, err
	case err != nil:
		return Result{Outcome: OutcomeRejected, Reason: err, Warnings: warnings}, nil
	case !loaded:
		return Result{Outcome: OutcomeIgnored, Warnings: warnings}, nil
	}
	res := Result{Outcome: OutcomeAdvanced, Warnings: warnings}
	c.opponentTurn(ctx, &res)
	return res, nil
}

// move applies a human move and, in single-player, the opponent's reply.
// A reply that failed earlier is retried first; the human never moves the
// opponent's pieces while an opponent is bound.
func (c *Controller) move(ctx context.Context, ev Event) (Result, error) {
	board := c.st.Board
	if board == nil {
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("%w: active play without a board", ErrInvariant)
	}
	var res Result
	if c.opponentOnTurn() {
		c.opponentTurn(ctx, &res)
		res.Move.CatchUpSAN, res.Move.CatchUpUCI = res.Move.ReplySAN, res.Move.ReplyUCI
		res.Move.ReplySAN, res.Move.ReplyUCI = "", ""
		if c.opponentOnTurn() {
			res.Outcome, res.Reason = OutcomeRejected, ErrNotYourTurn
			return res, nil
		}
	}
	uci, san, err := board.Play(ev.Move)
	if err != nil {
		res.Outcome, res.Reason = OutcomeRejected, err
		return res, nil
	}
	if res.Move == nil {
		res.Move = &MoveReport{}
	}
	res.Outcome = OutcomeApplied
	res.Move.SAN, res.Move.UCI = san, uci
	c.opponentTurn(ctx, &res)
	res.Move.Finished = board.Finished()
	res.Move.Result = board.Result()
	res.Move.NextColour = board.Turn()
	return res, nil
}

func (c *Controller) opponentOnTurn() bool {
	st := c.st
	return st.Mode == domain.ModeSinglePlayer && st.Opponent != nil && st.Board != nil &&
		!st.Board.Finished() && st.Board.Turn() == st.Opponent.Colour()
}

// opponentTurn lets the bound opponent move when it is on turn.
func (c *Controller) opponentTurn(ctx context.Context, res *Result) {
	if !c.opponentOnTurn() {
		return
	}
	st := c.st
	op := st.Opponent
	if res.Move == nil {
		res.Move = &MoveReport{}
	}
	reply, err := op.Reply(ctx, st.Board)
	if err == nil {
		res.Move.ReplyUCI, res.Move.ReplySAN, err = st.Board.Play(reply)
	}
	if err != nil {
		c.logger.Warn("opponent_reply_failed", zap.String("opponent", op.Name()), zap.Error(err))
		res.Warnings = append(res.Warnings, Warning{Source: SourceOpponent, Err: err})
	}
	res.Move.Finished = st.Board.Finished()
	res.Move.Result = st.Board.Result()
	res.Move.NextColour = st.Board.Turn()
}

func (c *Controller) close(ctx context.Context, _ Event) (Result, error) {
	var warnings []Warning
	if op := c.st.Opponent; op != nil {
		if err := op.Close(); err != nil {
			c.logger.Warn("opponent_close_failed", zap.Error(err))
			warnings = append(warnings, Warning{Source: SourceOpponent, Err: err})
		}
	}
	report, err := c.finalizer.Finalize(ctx, c.st)
	if report != nil && report.Skipped {
		warnings = append(warnings, Warning{Source: SourceFinalizer, Err: ErrNothingToFinalize})
	}
	return Result{Outcome: OutcomeApplied, Warnings: warnings, Final: report}, err
}
