package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/flow"
	"github.com/park285/chessmaster/internal/msgcat"
	"github.com/park285/chessmaster/internal/render"
	"github.com/park285/chessmaster/internal/rules"
	"go.uber.org/zap"
)

// app turns terminal lines into controller events and prints the results.
type app struct {
	out      io.Writer
	cat      *msgcat.Catalog
	renderer *render.Text
	ctrl     *flow.Controller
	logger   *zap.Logger

	// listed holds the sessions shown by the last "load" or "games", for "pick <n>".
	listed []*domain.SessionRecord
}

func (a *app) say(key string, data any) {
	fmt.Fprintln(a.out, a.cat.Text(key, data))
}

func (a *app) warn(w flow.Warning) {
	a.say("warning.line", map[string]any{"Source": w.Source, "Err": w.Err})
}

// fail reports an error that ends the program. Invariant violations exit 3.
func (a *app) fail(err error) int {
	if errors.Is(err, flow.ErrInvariant) {
		a.say("error.invariant", map[string]any{"Err": err})
		return 3
	}
	a.logger.Error("session_error", zap.Error(err))
	fmt.Fprintf(a.out, "error: %v\n", err)
	return 1
}

// abort ends the program after err. Unless err is an invariant violation or
// the session is already closed, the session is closed first so it is saved.
func (a *app) abort(ctx context.Context, err error, closed bool) int {
	if !closed && !errors.Is(err, flow.ErrInvariant) {
		res, cerr := a.ctrl.Handle(ctx, flow.Event{Command: flow.CmdClose})
		a.reportFinal(res.Final)
		if cerr != nil {
			a.logger.Error("session_close_failed", zap.Error(cerr))
		}
	}
	return a.fail(err)
}

// exec handles one input line. done reports that the session was closed.
func (a *app) exec(ctx context.Context, line string) (done bool, err error) {
	verb, arg := splitVerb(line)
	switch verb {
	case "help", "?":
		a.say("help.text", nil)
		return false, nil
	case "players":
		a.listParticipants(ctx)
		return false, nil
	case "games":
		a.listSessions(ctx)
		return false, nil
	case "board":
		if st := a.ctrl.State(); st.Board != nil {
			a.drawBoard(st.Board)
		}
		return false, nil
	case "quit", "exit", "q":
		res, err := a.ctrl.Handle(ctx, flow.Event{Command: flow.CmdClose})
		a.reportFinal(res.Final)
		return true, err
	}

	ev, ok, err := a.event(ctx, verb, arg, line)
	if err != nil || !ok {
		return false, err
	}
	res, err := a.ctrl.Handle(ctx, ev)
	if err != nil {
		return false, err
	}
	a.report(res)
	if res.Outcome == flow.OutcomeAdvanced {
		a.prompt(ctx)
	}
	return false, nil
}

func (a *app) event(ctx context.Context, verb, arg, line string) (flow.Event, bool, error) {
	switch verb {
	case "new":
		return flow.Event{Command: flow.CmdChooseNew}, true, nil
	case "load":
		return flow.Event{Command: flow.CmdChooseLoad}, true, nil
	case "mode":
		mode, err := domain.ParseMode(arg)
		if err != nil {
			a.say("mode.prompt", nil)
			return flow.Event{}, false, nil
		}
		return flow.Event{Command: flow.CmdSelectMode, Mode: mode}, true, nil
	case "name":
		return flow.Event{Command: flow.CmdSubmitParticipants, Names: [2]string{arg}}, true, nil
	case "names":
		first, second, _ := strings.Cut(arg, "/")
		return flow.Event{Command: flow.CmdSubmitParticipants, Names: [2]string{first, second}}, true, nil
	case "colour", "color":
		colour, err := domain.ParseColour(arg)
		if err != nil {
			colour = domain.Colour(arg)
		}
		return flow.Event{Command: flow.CmdSelectColour, Colour: colour}, true, nil
	case "pick":
		return flow.Event{Command: flow.CmdSelectRecord, Record: a.pick(arg)}, true, nil
	case "move":
		return flow.Event{Command: flow.CmdMove, Move: arg}, true, nil
	}
	if a.ctrl.Step() == flow.StepActivePlay {
		return flow.Event{Command: flow.CmdMove, Move: line}, true, nil
	}
	a.say("error.ignored", nil)
	return flow.Event{}, false, nil
}

func (a *app) pick(arg string) *domain.SessionRecord {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(a.listed) {
		return nil
	}
	return a.listed[n-1]
}

func (a *app) report(res flow.Result) {
	switch res.Outcome {
	case flow.OutcomeIgnored:
		a.say("error.ignored", nil)
	case flow.OutcomeDeferred:
		if res.Step == flow.StepSelectParticipant {
			a.say("participants.deferred", nil)
		}
	case flow.OutcomeRejected:
		switch {
		case errors.Is(res.Reason, flow.ErrDuplicateName):
			a.say("participants.rejected", nil)
		case errors.Is(res.Reason, flow.ErrNotYourTurn):
			a.say("play.waiting", nil)
		case res.Reason != nil:
			fmt.Fprintf(a.out, "%v\n", res.Reason)
		}
	}
	if mv := res.Move; mv != nil {
		for _, san := range []string{mv.CatchUpSAN, mv.ReplySAN} {
			if san != "" {
				a.say("play.opponent_move", map[string]any{"Move": san})
			}
		}
		if st := a.ctrl.State(); st.Board != nil && (res.Outcome == flow.OutcomeApplied || mv.CatchUpSAN != "") {
			a.drawBoard(st.Board)
		}
		if mv.Finished {
			a.say("play.result", map[string]any{"Result": mv.Result})
		}
	}
}

func (a *app) reportFinal(r *flow.Report) {
	switch {
	case r == nil:
	case r.Skipped:
		a.say("finalize.skipped", nil)
	default:
		a.say("finalize.saved", map[string]any{"ID": r.RecordID})
		if r.Winner != nil {
			a.say("finalize.outcome", map[string]any{"Winner": r.Winner.Name, "Loser": r.Loser.Name})
		} else {
			a.say("finalize.no_outcome", nil)
		}
	}
}

// prompt prints the instructions for the active step.
func (a *app) prompt(ctx context.Context) {
	st := a.ctrl.State()
	switch st.Active {
	case flow.StepWelcome:
		a.say("welcome.choices", nil)
	case flow.StepSelectMode:
		a.say("mode.prompt", nil)
	case flow.StepSelectRecord:
		a.listSessions(ctx)
		a.say("loader.prompt", nil)
	case flow.StepSelectParticipant:
		a.say("mode.chosen", map[string]any{"Mode": st.Mode})
		a.listParticipants(ctx)
		if st.Mode == domain.ModeMultiplayer {
			a.say("participants.prompt_multi", nil)
		} else {
			a.say("participants.prompt_single", nil)
		}
	case flow.StepSelectColour:
		a.say("colour.prompt", nil)
	case flow.StepActivePlay:
		if st.Mode == domain.ModeSinglePlayer {
			a.say("colour.chosen", map[string]any{
				"Human":    st.Holder(st.HumanColour()).String(),
				"Colour":   st.HumanColour(),
				"Opponent": st.HumanColour().Opposite(),
			})
		}
		if st.Record != nil {
			a.say("loader.loaded", map[string]any{"Label": st.Record.Label()})
		}
		a.drawBoard(st.Board)
		a.say("play.prompt", nil)
	}
}

func (a *app) drawBoard(b *rules.Board) {
	if err := a.renderer.Board(b); err != nil {
		a.logger.Warn("board_render_failed", zap.Error(err))
	}
}

// storeUnavailable reports a failed listing; the session itself carries on.
func (a *app) storeUnavailable(event string, err error) {
	a.logger.Warn(event, zap.Error(err))
	a.say("error.store", map[string]any{"Err": err})
}

func (a *app) listParticipants(ctx context.Context) {
	ps, err := a.ctrl.Participants(ctx)
	if err != nil {
		a.storeUnavailable("list_participants_failed", err)
		return
	}
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.IsAutomated() {
			continue
		}
		names = append(names, fmt.Sprintf("%s (%d/%d/%d)", p.Name, p.Played, p.Won, p.Lost))
	}
	if len(names) > 0 {
		a.say("participants.known", map[string]any{"Names": strings.Join(names, ", ")})
	}
}

func (a *app) listSessions(ctx context.Context) {
	recs, err := a.ctrl.Sessions(ctx)
	if err != nil {
		a.storeUnavailable("list_sessions_failed", err)
		return
	}
	a.listed = recs
	if len(recs) == 0 {
		a.say("loader.empty", nil)
		return
	}
	for i, r := range recs {
		data := map[string]any{"Index": i + 1, "Label": r.Label()}
		if b, err := rules.Replay(r.Moves); err == nil && b.Finished() {
			data["Result"] = b.Result()
			a.say("loader.item_finished", data)
			continue
		}
		a.say("loader.item", data)
	}
}

func splitVerb(line string) (verb, arg string) {
	line = strings.TrimSpace(line)
	verb, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(verb), strings.TrimSpace(arg)
}
