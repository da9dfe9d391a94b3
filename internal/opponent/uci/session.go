// Package uci drives a UCI chess engine subprocess over its stdin/stdout.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout = 4 * time.Second
	quitGrace           = time.Second
)

var ErrNoBestMove = errors.New("engine returned no best move")

type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
}

// Session owns one engine process. Search calls are serialized.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.Logger

	// lines is fed by the single stdout reader and closed when stdout ends;
	// readErr is set before that close.
	lines   chan string
	readErr error
	done    chan struct{}

	mu     sync.Mutex
	search sync.Mutex
	closed bool
	// resync is set when a search was abandoned; its bestmove may still arrive.
	resync bool
}

// Start launches the engine binary and completes the uci/isready handshake.
// The process lives until Close; ctx bounds only the handshake.
func Start(ctx context.Context, binaryPath string, opt Options, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		logger: logger,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
	}
	go s.readLoop(stdoutPipe)

	if err := s.initialize(ctx, opt); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Debug("uci_engine_started", zap.String("path", binaryPath), zap.Int("skill", opt.SkillLevel))
	return s, nil
}

// BestMove searches the position reached from the start by moves and returns the engine's choice in UCI notation.
func (s *Session) BestMove(ctx context.Context, moves []string, limits Limits) (string, error) {
	s.search.Lock()
	defer s.search.Unlock()

	goTokens, err := buildGoTokens(limits)
	if err != nil {
		return "", err
	}
	if s.resync {
		if err := s.sync(ctx); err != nil {
			return "", fmt.Errorf("resync engine: %w", err)
		}
	}
	if err := s.send(buildPositionCommand(moves)); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}
	if err := s.send(strings.Join(goTokens, " ") + "\n"); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout(limits))
	defer cancel()

	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			s.logger.Warn("uci_read_failed", zap.Int("ply", len(moves)), zap.Error(err))
			s.resync = true
			_ = s.send("stop\n")
			return "", fmt.Errorf("read line: %w", err)
		}
		if !strings.HasPrefix(line, "bestmove") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 || parts[1] == "(none)" || parts[1] == "0000" {
			return "", ErrNoBestMove
		}
		return parts[1], nil
	}
}

func buildPositionCommand(moves []string) string {
	var sb strings.Builder
	sb.WriteString("position startpos")
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func searchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		return time.Duration(l.MoveTimeMillis+2000) * time.Millisecond
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		return min(max(base, 6*time.Second), 20*time.Second)
	}
	return 6 * time.Second
}

// Close asks the engine to quit and kills it if it does not exit promptly.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	_, _ = io.WriteString(s.stdin, "quit\n")
	s.stdin.Close()
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(quitGrace):
		_ = s.cmd.Process.Kill()
		<-done
		return nil
	}
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
		fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel),
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	cmds = append(cmds, "ucinewgame\n", "isready\n")
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// sync discards output left over from an abandoned search: lines the engine
// wrote before answering isready belong to that search.
func (s *Session) sync(ctx context.Context) error {
	syncCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	if err := s.send("isready\n"); err != nil {
		return err
	}
	if err := s.awaitToken(syncCtx, "readyok"); err != nil {
		return err
	}
	s.resync = false
	return nil
}

// readLoop is the only reader of the engine's stdout.
func (s *Session) readLoop(r io.Reader) {
	defer close(s.lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			select {
			case s.lines <- line:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// readLine returns the next engine line, or ctx's error if none arrives in time.
func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", s.readErr
			}
			return "", io.EOF
		}
		return line, nil
	}
}
