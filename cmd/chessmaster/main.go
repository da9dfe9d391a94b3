package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	appcfg "github.com/park285/chessmaster/internal/config"
	"github.com/park285/chessmaster/internal/flow"
	"github.com/park285/chessmaster/internal/msgcat"
	"github.com/park285/chessmaster/internal/obslog"
	"github.com/park285/chessmaster/internal/render"
	"github.com/park285/chessmaster/internal/storebuilder"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := appcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	if err := obslog.Init(cfg.LogOptions()); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 2
	}
	defer obslog.Sync()
	logger := obslog.Named("chessmaster")

	cat, err := msgcat.New(cfg.MessagesFile)
	if err != nil {
		logger.Error("message_catalog_failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "messages error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	deps, err := storebuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("deps_init_failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		return 1
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("store_close_failed", zap.Error(err))
		}
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chess> ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal error: %v\n", err)
		return 1
	}
	defer rl.Close()

	out := rl.Stdout()
	renderer := render.NewText(out)
	a := &app{out: out, cat: cat, renderer: renderer, logger: logger}
	ctrl, err := flow.NewController(flow.Options{
		Participants: deps.Store,
		Sessions:     deps.Store,
		Opponents:    deps.Opponents,
		Renderer:     renderer,
		Logger:       logger.Named("flow"),
		WarningSink:  a.warn,
	})
	if err != nil {
		logger.Error("controller_init_failed", zap.Error(err))
		return 1
	}
	a.ctrl = ctrl

	a.say("welcome.title", nil)
	a.prompt(ctx)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("readline_failed", zap.Error(err))
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		done, err := a.exec(ctx, line)
		if err != nil {
			return a.abort(ctx, err, done)
		}
		if done {
			return 0
		}
	}

	if done, err := a.exec(ctx, "quit"); err != nil {
		return a.abort(ctx, err, done)
	}
	return 0
}
