package opponent

import (
	"context"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/rules"
)

const mateScore = 1000

// Greedy looks one ply ahead: it mates when it can, otherwise it maximizes
// the material balance. Ties go to the first move in generation order.
type Greedy struct {
	colour domain.Colour
}

func NewGreedy(colour domain.Colour) *Greedy {
	return &Greedy{colour: colour}
}

func (g *Greedy) Name() string          { return "greedy" }
func (g *Greedy) Colour() domain.Colour { return g.colour }
func (g *Greedy) Close() error          { return nil }

func (g *Greedy) Reply(ctx context.Context, board *rules.Board) (string, error) {
	if board == nil {
		return "", ErrNoBoard
	}
	if board.Turn() != g.colour {
		return "", ErrNotToMove
	}
	legal := board.LegalMoves()
	if len(legal) == 0 {
		return "", ErrNoMoves
	}

	enemy := g.colour.Opposite()
	best, bestScore := "", 0
	for _, mv := range legal {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		next := board.Clone()
		if _, _, err := next.Play(mv); err != nil {
			continue
		}
		score := next.Material(g.colour) - next.Material(enemy)
		if next.IsCheckmate(enemy) {
			score += mateScore
		}
		if best == "" || score > bestScore {
			best, bestScore = mv, score
		}
	}
	if best == "" {
		return "", ErrNoMoves
	}
	return best, nil
}
