package domain

import (
	"strings"
	"time"
)

// AutomatedOpponent is the reserved identity of the computer side in single-player sessions.
const AutomatedOpponent = "AI"

type Participant struct {
	Name      string    `json:"name"`
	Played    int       `json:"played"`
	Won       int       `json:"won"`
	Lost      int       `json:"lost"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewParticipant(name string, now time.Time) *Participant {
	return &Participant{
		Name:      NormalizeName(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Participant) GamePlayed() { p.Played++ }
func (p *Participant) RecordWin()  { p.Won++ }
func (p *Participant) RecordLoss() { p.Lost++ }

func (p *Participant) IsAutomated() bool {
	return p != nil && p.Name == AutomatedOpponent
}

func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (p *Participant) String() string {
	if p == nil {
		return ""
	}
	return p.Name
}

// NormalizeName trims surrounding whitespace and collapses inner runs of it.
// Lookups are exact matches on the normalized form.
func NormalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
