package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store keeps each value as JSON under its own key plus one index per kind:
// a set of participant names and a sorted set of session ids scored by update time.
type Store struct {
	rdb    *redis.Client
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(rdb *redis.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{rdb: rdb, logger: logger}
}

// Dial parses a redis:// or rediss:// URL, connects and pings.
func Dial(ctx context.Context, rawURL string, logger *zap.Logger) (*Store, error) {
	opts, err := ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, logger), nil
}

// ParseURL accepts redis:// and rediss:// URLs; rediss enables TLS.
func ParseURL(raw string) (*redis.Options, error) {
	return redis.ParseURL(strings.TrimSpace(raw))
}

func (s *Store) Close() error { return s.rdb.Close() }

func keyParticipant(name string) string { return "cm:participant:" + name }
func keyParticipants() string           { return "cm:participants" }
func keySession(id string) string       { return "cm:session:" + strings.TrimSpace(id) }
func keySessions() string               { return "cm:sessions" }

func (s *Store) ListParticipants(ctx context.Context) ([]*domain.Participant, error) {
	names, err := s.rdb.SMembers(ctx, keyParticipants()).Result()
	if err != nil {
		return nil, fmt.Errorf("list participant names: %w", err)
	}
	out := make([]*domain.Participant, 0, len(names))
	for _, n := range names {
		p, err := s.FindParticipant(ctx, n)
		if err != nil {
			return nil, err
		}
		if p == nil {
			s.logger.Warn("participant_index_stale", zap.String("name", n))
			continue
		}
		out = append(out, p)
	}
	sortParticipants(out)
	return out, nil
}

func (s *Store) FindParticipant(ctx context.Context, name string) (*domain.Participant, error) {
	raw, err := s.rdb.Get(ctx, keyParticipant(domain.NormalizeName(name))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	var p domain.Participant
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}
	return &p, nil
}

func (s *Store) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	if p == nil {
		return store.ErrNilParticipant
	}
	name := domain.NormalizeName(p.Name)
	if name == "" {
		return store.ErrEmptyKey
	}
	cp := p.Clone()
	cp.Name = name
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyParticipant(name), raw, 0)
		pipe.SAdd(ctx, keyParticipants(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	ids, err := s.rdb.ZRevRange(ctx, keySessions(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	out := make([]*domain.SessionRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			s.logger.Warn("session_index_stale", zap.String("id", id))
			continue
		}
		out = append(out, rec)
	}
	// ZREVRANGE breaks score ties by member descending; memstore and sqlstore use id ascending.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	raw, err := s.rdb.Get(ctx, keySession(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (s *Store) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil {
		return store.ErrNilSession
	}
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return store.ErrEmptyKey
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	score := float64(rec.UpdatedAt.UnixMilli())
	if rec.UpdatedAt.IsZero() {
		score = 0
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keySession(id), raw, 0)
		pipe.ZAdd(ctx, keySessions(), redis.Z{Score: score, Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func sortParticipants(ps []*domain.Participant) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}
