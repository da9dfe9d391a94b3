package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestColourOppositeIsInvolutive(t *testing.T) {
	for _, c := range []Colour{White, Black} {
		require.NotEqual(t, c, c.Opposite())
		require.Equal(t, c, c.Opposite().Opposite())
	}
	require.Equal(t, NoColour, NoColour.Opposite())
}

func TestParseModeAndColour(t *testing.T) {
	m, err := ParseMode("1")
	require.NoError(t, err)
	require.Equal(t, ModeSinglePlayer, m)
	m, err = ParseMode(" multiplayer ")
	require.NoError(t, err)
	require.Equal(t, ModeMultiplayer, m)
	_, err = ParseMode("3")
	require.Error(t, err)
	require.False(t, Mode(3).Valid())

	c, err := ParseColour("B")
	require.NoError(t, err)
	require.Equal(t, Black, c)
	_, err = ParseColour("green")
	require.Error(t, err)
}

func TestParticipantStatistics(t *testing.T) {
	p := NewParticipant("  Alice   Smith ", time.Now())
	require.Equal(t, "Alice Smith", p.Name)
	p.GamePlayed()
	p.RecordWin()
	p.GamePlayed()
	p.RecordLoss()
	require.Equal(t, 2, p.Played)
	require.Equal(t, 1, p.Won)
	require.Equal(t, 1, p.Lost)
	require.False(t, p.IsAutomated())
	require.True(t, NewParticipant(AutomatedOpponent, time.Now()).IsAutomated())
}

func TestSessionRecordValidate(t *testing.T) {
	valid := &SessionRecord{
		ID:      "r1",
		Mode:    ModeMultiplayer,
		Colour1: White,
		Colour2: Black,
		Player1: "Carol",
		Player2: "Dave",
		Moves:   []string{"e2e4", "e7e5", "e7e8q"},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(r *SessionRecord){
		"missing id":     func(r *SessionRecord) { r.ID = "" },
		"bad mode":       func(r *SessionRecord) { r.Mode = 7 },
		"same colours":   func(r *SessionRecord) { r.Colour2 = White },
		"unset colour":   func(r *SessionRecord) { r.Colour1 = NoColour },
		"same players":   func(r *SessionRecord) { r.Player2 = "Carol" },
		"missing player": func(r *SessionRecord) { r.Player1 = "" },
		"garbage move":   func(r *SessionRecord) { r.Moves = []string{"e4"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid.Clone()
			mutate(r)
			err := r.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}

	var nilRecord *SessionRecord
	require.ErrorIs(t, nilRecord.Validate(), ErrInvalidRecord)
}
