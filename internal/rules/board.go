// Package rules adapts github.com/corentings/chess to the session flow: it owns
// the live position and the full move history of one session.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chessmaster/internal/domain"
)

var (
	ErrIllegalMove = errors.New("illegal chess move")
	ErrGameOver    = errors.New("chess game already finished")
)

// Board is not safe for concurrent use.
type Board struct {
	game *nchess.Game
}

func NewBoard() *Board {
	return &Board{game: nchess.NewGame()}
}

// Replay rebuilds a board from the start position by applying stored UCI moves.
func Replay(moves []string) (*Board, error) {
	b := NewBoard()
	notation := nchess.UCINotation{}
	for i, mv := range moves {
		text := strings.ToLower(strings.TrimSpace(mv))
		move, err := notation.Decode(b.game.Position(), text)
		if err != nil {
			return nil, fmt.Errorf("decode move %d %q: %w", i+1, mv, err)
		}
		if !b.isLegal(text) {
			return nil, fmt.Errorf("move %d %q: %w", i+1, mv, ErrIllegalMove)
		}
		if err := b.game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %d %q: %w", i+1, mv, err)
		}
	}
	return b, nil
}

// Replayer reconstructs boards from persisted session records.
type Replayer struct{}

func (Replayer) Reload(_ context.Context, rec *domain.SessionRecord) (*Board, error) {
	if rec == nil {
		return nil, fmt.Errorf("reload: nil session record")
	}
	return Replay(rec.Moves)
}

// Play applies a move given in SAN ("Nf3") or UCI ("g1f3") notation and
// returns it in both notations.
func (b *Board) Play(input string) (uci string, san string, err error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return "", "", ErrIllegalMove
	}
	if b.Finished() {
		return "", "", ErrGameOver
	}

	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	pos := b.game.Position()
	move, err := notationSAN.Decode(pos, text)
	if err != nil {
		move, err = notationUCI.Decode(pos, strings.ToLower(text))
		if err != nil {
			return "", "", fmt.Errorf("%w: %s", ErrIllegalMove, text)
		}
	}
	san = notationSAN.Encode(pos, move)
	uci = strings.ToLower(notationUCI.Encode(pos, move))
	if !b.isLegal(uci) {
		return "", "", fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	if err := b.game.Move(move, nil); err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	return uci, san, nil
}

// Turn is the side to move.
func (b *Board) Turn() domain.Colour {
	return colourFrom(b.game.Position().Turn())
}

// IsCheckmate reports whether c has been checkmated.
func (b *Board) IsCheckmate(c domain.Colour) bool {
	if b.game.Method() != nchess.Checkmate {
		return false
	}
	switch b.game.Outcome() {
	case nchess.WhiteWon:
		return c == domain.Black
	case nchess.BlackWon:
		return c == domain.White
	default:
		return false
	}
}

func (b *Board) Finished() bool {
	return b.game.Outcome() != nchess.NoOutcome
}

// Result describes the outcome, e.g. "White won by checkmate"; empty while the game is running.
func (b *Board) Result() string {
	var winner string
	switch b.game.Outcome() {
	case nchess.WhiteWon:
		winner = "White won"
	case nchess.BlackWon:
		winner = "Black won"
	case nchess.Draw:
		winner = "Draw"
	default:
		return ""
	}
	return fmt.Sprintf("%s by %s", winner, strings.ToLower(b.game.Method().String()))
}

// Moves returns the full move history in UCI notation.
func (b *Board) Moves() []string {
	moves := b.game.Moves()
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		out = append(out, strings.ToLower(mv.String()))
	}
	return out
}

// MovesSAN returns the move history in algebraic notation.
func (b *Board) MovesSAN() []string {
	positions := b.game.Positions()
	moves := b.game.Moves()
	notation := nchess.AlgebraicNotation{}
	out := make([]string, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out[i] = notation.Encode(positions[i], mv)
		}
	}
	return out
}

// LegalMoves lists the legal moves of the side to move in UCI notation.
func (b *Board) LegalMoves() []string {
	valid := b.game.ValidMoves()
	out := make([]string, 0, len(valid))
	for i := range valid {
		mv := valid[i]
		out = append(out, strings.ToLower(mv.String()))
	}
	return out
}

func (b *Board) isLegal(uci string) bool {
	for _, mv := range b.LegalMoves() {
		if mv == uci {
			return true
		}
	}
	return false
}

// Piece returns the piece on a square given as "e4"; NoPiece for empty or invalid squares.
func (b *Board) Piece(square string) nchess.Piece {
	sq, ok := parseSquare(square)
	if !ok {
		return nchess.NoPiece
	}
	return b.game.Position().Board().Piece(sq)
}

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

// Material sums the conventional piece values of one side (kings count zero).
func (b *Board) Material(c domain.Colour) int {
	board := b.game.Position().Board()
	total := 0
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece || colourFrom(piece.Color()) != c {
				continue
			}
			total += pieceValues[piece.Type()]
		}
	}
	return total
}

// Clone returns an independent copy, used by opponents to look ahead.
func (b *Board) Clone() *Board {
	return &Board{game: b.game.Clone()}
}

func (b *Board) FEN() string {
	return b.game.FEN()
}

func colourFrom(c nchess.Color) domain.Colour {
	if c == nchess.White {
		return domain.White
	}
	return domain.Black
}

func parseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	file := nchess.File(s[0] - 'a')
	rank := nchess.Rank(s[1] - '1')
	return nchess.NewSquare(file, rank), true
}
