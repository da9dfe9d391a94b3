package rules

import (
	"sync"

	"github.com/corentings/chess/v2/opening"
)

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening names the most specific ECO opening the move history follows.
// Both values are empty when the history matches no catalogued line.
func (b *Board) Opening() (code, title string) {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	if eco := ecoBook.Find(b.game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
