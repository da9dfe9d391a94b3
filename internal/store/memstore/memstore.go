package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store"
)

// Store is an in-process backend used for tests and STORE_BACKEND=memory.
// Values are copied on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	participants map[string]*domain.Participant
	sessions     map[string]*domain.SessionRecord
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		participants: make(map[string]*domain.Participant),
		sessions:     make(map[string]*domain.SessionRecord),
	}
}

func (m *Store) ListParticipants(ctx context.Context) ([]*domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Participant, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) FindParticipant(ctx context.Context, name string) (*domain.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[domain.NormalizeName(name)]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (m *Store) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	if p == nil {
		return store.ErrNilParticipant
	}
	key := domain.NormalizeName(p.Name)
	if key == "" {
		return store.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[key] = p.Clone()
	return nil
}

func (m *Store) ListSessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SessionRecord, 0, len(m.sessions))
	for _, r := range m.sessions {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Store) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (m *Store) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil {
		return store.ErrNilSession
	}
	if rec.ID == "" {
		return store.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = rec.Clone()
	return nil
}

func (m *Store) Close() error { return nil }
