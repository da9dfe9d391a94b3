// Package store defines persistence contracts for participants and session records.
package store

import (
	"context"
	"errors"

	"github.com/park285/chessmaster/internal/domain"
)

var (
	ErrNilParticipant = errors.New("nil participant payload")
	ErrNilSession     = errors.New("nil session record payload")
	ErrEmptyKey       = errors.New("empty store key")
)

// ParticipantStore persists participants keyed by their normalized name.
type ParticipantStore interface {
	ListParticipants(ctx context.Context) ([]*domain.Participant, error)
	// FindParticipant returns nil, nil when no participant has that name.
	FindParticipant(ctx context.Context, name string) (*domain.Participant, error)
	SaveParticipant(ctx context.Context, p *domain.Participant) error
}

// SessionStore persists session records keyed by ID.
type SessionStore interface {
	// ListSessions returns records ordered by UpdatedAt, most recent first.
	ListSessions(ctx context.Context) ([]*domain.SessionRecord, error)
	// GetSession returns nil, nil when the record does not exist.
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)
	SaveSession(ctx context.Context, rec *domain.SessionRecord) error
}

// Store is the full backend surface built by storebuilder.
type Store interface {
	ParticipantStore
	SessionStore
	Close() error
}
