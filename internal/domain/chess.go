package domain

import (
	"fmt"
	"strings"
)

// Mode is fixed for the lifetime of a session once chosen.
type Mode int

const (
	ModeSinglePlayer Mode = 1
	ModeMultiplayer  Mode = 2
)

func (m Mode) Valid() bool {
	return m == ModeSinglePlayer || m == ModeMultiplayer
}

func (m Mode) String() string {
	switch m {
	case ModeSinglePlayer:
		return "single-player"
	case ModeMultiplayer:
		return "multiplayer"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the menu number or the mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "single", "single-player", "singleplayer", "sp":
		return ModeSinglePlayer, nil
	case "2", "multi", "multiplayer", "multi-player", "mp":
		return ModeMultiplayer, nil
	default:
		return 0, fmt.Errorf("unknown game mode %q", s)
	}
}

// Colour is one side of the board. The zero value means "never assigned".
type Colour string

const (
	NoColour Colour = ""
	White    Colour = "White"
	Black    Colour = "Black"
)

func (c Colour) Valid() bool {
	return c == White || c == Black
}

// Opposite is total and involutive on {White, Black}.
func (c Colour) Opposite() Colour {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColour
	}
}

func (c Colour) String() string {
	if c == NoColour {
		return "-"
	}
	return string(c)
}

func ParseColour(s string) (Colour, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return NoColour, fmt.Errorf("unknown colour %q", s)
	}
}
