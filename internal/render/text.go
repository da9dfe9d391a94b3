// Package render draws boards and session status as plain text for the terminal.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/opponent"
	"github.com/park285/chessmaster/internal/rules"
)

const (
	materialNeutral  = 39
	recentMovesLimit = 6
	files            = "abcdefgh"
)

var ErrNilOpponent = errors.New("nil opponent")

// Text renders to an io.Writer. It remembers the game mode and the bound
// opponent so the board is drawn from the human's side.
type Text struct {
	w        io.Writer
	mode     domain.Mode
	opponent opponent.Opponent
}

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

func (t *Text) SetGameMode(mode domain.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("render: invalid game mode %d", int(mode))
	}
	t.mode = mode
	t.opponent = nil
	return nil
}

func (t *Text) BindOpponent(op opponent.Opponent) error {
	if op == nil {
		return ErrNilOpponent
	}
	t.opponent = op
	return nil
}

func (t *Text) Mode() domain.Mode { return t.mode }

// Bottom is the colour drawn on the lower edge.
func (t *Text) Bottom() domain.Colour {
	if t.mode == domain.ModeSinglePlayer && t.opponent != nil {
		return t.opponent.Colour().Opposite()
	}
	return domain.White
}

// Board writes the diagram followed by a status block.
func (t *Text) Board(b *rules.Board) error {
	if b == nil {
		return errors.New("render: nil board")
	}
	_, err := io.WriteString(t.w, Diagram(b, t.Bottom())+Status(b))
	return err
}

// Diagram draws an 8x8 grid, uppercase for White and lowercase for Black.
func Diagram(b *rules.Board, bottom domain.Colour) string {
	ranks := []int{8, 7, 6, 5, 4, 3, 2, 1}
	fileOrder := files
	if bottom == domain.Black {
		ranks = []int{1, 2, 3, 4, 5, 6, 7, 8}
		fileOrder = reverse(files)
	}

	var sb strings.Builder
	for _, r := range ranks {
		fmt.Fprintf(&sb, "%d ", r)
		for i := 0; i < len(fileOrder); i++ {
			sq := fmt.Sprintf("%c%d", fileOrder[i], r)
			sb.WriteString(" ")
			sb.WriteString(pieceSymbol(b.Piece(sq)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for i := 0; i < len(fileOrder); i++ {
		sb.WriteString(" ")
		sb.WriteByte(fileOrder[i])
	}
	sb.WriteString("\n")
	return sb.String()
}

func Status(b *rules.Board) string {
	var sb strings.Builder
	sb.WriteString("• moves: ")
	sb.WriteString(formatRecentMoves(b.MovesSAN()))
	sb.WriteString("\n")
	if code, title := b.Opening(); title != "" {
		fmt.Fprintf(&sb, "• opening: %s %s\n", code, title)
	}
	sb.WriteString("• material: ")
	sb.WriteString(formatMaterial(b.Material(domain.White), b.Material(domain.Black)))
	sb.WriteString("\n")
	if b.Finished() {
		sb.WriteString("• result: ")
		sb.WriteString(b.Result())
	} else {
		sb.WriteString("• to move: ")
		sb.WriteString(b.Turn().String())
	}
	sb.WriteString("\n")
	return sb.String()
}

func pieceSymbol(p nchess.Piece) string {
	if p == nchess.NoPiece {
		return "."
	}
	var s string
	switch p.Type() {
	case nchess.King:
		s = "K"
	case nchess.Queen:
		s = "Q"
	case nchess.Rook:
		s = "R"
	case nchess.Bishop:
		s = "B"
	case nchess.Knight:
		s = "N"
	case nchess.Pawn:
		s = "P"
	default:
		return "?"
	}
	if p.Color() == nchess.Black {
		return strings.ToLower(s)
	}
	return s
}

func formatRecentMoves(moves []string) string {
	if len(moves) == 0 {
		return "-"
	}
	start := 0
	if len(moves) > recentMovesLimit {
		start = len(moves) - recentMovesLimit
		if start%2 == 1 {
			start++
		}
	}
	var parts []string
	if start > 0 {
		parts = append(parts, "…")
	}
	for i := start; i < len(moves); i++ {
		if i%2 == 0 {
			parts = append(parts, fmt.Sprintf("%d.", i/2+1))
		}
		parts = append(parts, moves[i])
	}
	return strings.Join(parts, " ")
}

// formatMaterial reports captured material per side, measured against the starting total.
func formatMaterial(white, black int) string {
	whiteCaptured := max(materialNeutral-black, 0)
	blackCaptured := max(materialNeutral-white, 0)

	var parts []string
	if whiteCaptured > 0 {
		parts = append(parts, fmt.Sprintf("White +%d", whiteCaptured))
	}
	if blackCaptured > 0 {
		parts = append(parts, fmt.Sprintf("Black +%d", blackCaptured))
	}
	if len(parts) == 0 {
		return "even"
	}
	return strings.Join(parts, " / ")
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
