package opponent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/rules"
	"github.com/stretchr/testify/require"
)

func play(t *testing.T, b *rules.Board, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		_, _, err := b.Play(mv)
		require.NoError(t, err, mv)
	}
}

func TestGreedyTakesFreePawn(t *testing.T) {
	b := rules.NewBoard()
	play(t, b, "e4", "d5")
	g := NewGreedy(domain.White)
	mv, err := g.Reply(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, "e4d5", mv)

	black := NewGreedy(domain.Black)
	_, err = black.Reply(context.Background(), b)
	require.ErrorIs(t, err, ErrNotToMove)
}

func TestGreedyFindsMateInOne(t *testing.T) {
	b := rules.NewBoard()
	play(t, b, "f2f3", "e7e5", "g2g4")
	g := NewGreedy(domain.Black)
	mv, err := g.Reply(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, "d8h4", mv)
}

func TestGreedyCapturesQueen(t *testing.T) {
	b := rules.NewBoard()
	play(t, b, "e4", "d5", "Qh5", "Nf6", "Qxd5")
	g := NewGreedy(domain.Black)
	mv, err := g.Reply(context.Background(), b)
	require.NoError(t, err)
	require.Contains(t, []string{"f6d5", "d8d5"}, mv)
}

func TestGreedyNoBoard(t *testing.T) {
	_, err := NewGreedy(domain.White).Reply(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoBoard)
}

func TestFactoryDefaultsToGreedy(t *testing.T) {
	f := NewFactory(FactoryConfig{}, nil)
	op, err := f.Init(context.Background(), rules.NewBoard(), domain.Black)
	require.NoError(t, err)
	require.Equal(t, "greedy", op.Name())
	require.Equal(t, domain.Black, op.Colour())
	require.NoError(t, op.Close())

	_, err = f.Init(context.Background(), nil, domain.Black)
	require.ErrorIs(t, err, ErrNoBoard)
	_, err = f.Init(context.Background(), rules.NewBoard(), domain.NoColour)
	require.Error(t, err)
}

func TestFactoryMissingEngine(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "stockfish")

	_, err := NewFactory(FactoryConfig{EnginePath: missing}, nil).Init(context.Background(), rules.NewBoard(), domain.Black)
	require.Error(t, err)

	op, err := NewFactory(FactoryConfig{EnginePath: missing, FallbackGreedy: true}, nil).Init(context.Background(), rules.NewBoard(), domain.Black)
	require.NoError(t, err)
	require.Equal(t, "greedy", op.Name())
}

func TestEngineOpponent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine needs a POSIX shell")
	}
	script := "#!/bin/sh\nwhile read line; do\n  case \"$line\" in\n    uci) echo uciok ;;\n    isready) echo readyok ;;\n    go*) echo \"bestmove e7e5\" ;;\n    quit) exit 0 ;;\n  esac\ndone\n"
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	op, err := NewFactory(FactoryConfig{EnginePath: path}, nil).Init(context.Background(), rules.NewBoard(), domain.Black)
	require.NoError(t, err)
	defer op.Close()
	require.Equal(t, "engine", op.Name())

	b := rules.NewBoard()
	_, err = op.Reply(context.Background(), b)
	require.ErrorIs(t, err, ErrNotToMove)

	play(t, b, "e4")
	mv, err := op.Reply(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, "e7e5", mv)
}
