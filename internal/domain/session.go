package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidRecord = errors.New("invalid session record")

var validate = validator.New()

// SessionRecord is the persisted form of one session.
type SessionRecord struct {
	ID        string    `json:"id" validate:"required"`
	Mode      Mode      `json:"mode" validate:"oneof=1 2"`
	Colour1   Colour    `json:"colour1" validate:"oneof=White Black"`
	Colour2   Colour    `json:"colour2" validate:"oneof=White Black,nefield=Colour1"`
	Player1   string    `json:"player1" validate:"required,max=64"`
	Player2   string    `json:"player2" validate:"required,max=64,nefield=Player1"`
	Moves     []string  `json:"moves" validate:"dive,min=4,max=5"`
	Turn      Colour    `json:"turn,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports whether the record can be resumed.
func (r *SessionRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// Label is the one-line description shown by the session picker.
func (r *SessionRecord) Label() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s vs %s (%s, %d moves, %s)",
		r.Player1, r.Player2, r.Mode, len(r.Moves), r.UpdatedAt.Format("2006-01-02 15:04"))
}

func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Moves = append([]string(nil), r.Moves...)
	return &cp
}
