// Package sqlstore persists participants and session records through database/sql.
// The same queries serve sqlite (modernc.org/sqlite) and postgres (lib/pq);
// statements are written with '?' placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/chessmaster/internal/domain"
	"github.com/park285/chessmaster/internal/store"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS participants (
		name       TEXT PRIMARY KEY,
		played     INTEGER NOT NULL DEFAULT 0,
		won        INTEGER NOT NULL DEFAULT 0,
		lost       INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		mode       INTEGER NOT NULL,
		colour1    TEXT NOT NULL,
		colour2    TEXT NOT NULL,
		player1    TEXT NOT NULL,
		player2    TEXT NOT NULL,
		moves      TEXT NOT NULL,
		turn       TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_updated_at_idx ON sessions (updated_at)`,
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and migrates. The caller owns the returned store and must Close it.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty %s dsn", dialect)
	}
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	switch dialect {
	case DialectSQLite:
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	s := New(db, dialect, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing handle. Migrate must have been run against it.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.logger.Debug("sql_store_migrated", zap.String("dialect", string(s.dialect)))
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) ListParticipants(ctx context.Context) ([]*domain.Participant, error) {
	const query = `
		SELECT name, played, won, lost, created_at, updated_at
		FROM participants
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}

func (s *Store) FindParticipant(ctx context.Context, name string) (*domain.Participant, error) {
	const query = `
		SELECT name, played, won, lost, created_at, updated_at
		FROM participants
		WHERE name = ?`

	p, err := scanParticipant(s.db.QueryRowContext(ctx, s.rebind(query), domain.NormalizeName(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) SaveParticipant(ctx context.Context, p *domain.Participant) error {
	if p == nil {
		return store.ErrNilParticipant
	}
	name := domain.NormalizeName(p.Name)
	if name == "" {
		return store.ErrEmptyKey
	}
	const query = `
		INSERT INTO participants (name, played, won, lost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET
			played = excluded.played,
			won = excluded.won,
			lost = excluded.lost,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		name,
		p.Played,
		p.Won,
		p.Lost,
		toMillis(p.CreatedAt),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]*domain.SessionRecord, error) {
	const query = `
		SELECT id, mode, colour1, colour2, player1, player2, moves, turn, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SessionRecord, 0)
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	const query = `
		SELECT id, mode, colour1, colour2, player1, player2, moves, turn, created_at, updated_at
		FROM sessions
		WHERE id = ?`

	rec, err := scanSession(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) SaveSession(ctx context.Context, rec *domain.SessionRecord) error {
	if rec == nil {
		return store.ErrNilSession
	}
	if strings.TrimSpace(rec.ID) == "" {
		return store.ErrEmptyKey
	}
	moves := rec.Moves
	if moves == nil {
		moves = []string{}
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const query = `
		INSERT INTO sessions (id, mode, colour1, colour2, player1, player2, moves, turn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET
			mode = excluded.mode,
			colour1 = excluded.colour1,
			colour2 = excluded.colour2,
			player1 = excluded.player1,
			player2 = excluded.player2,
			moves = excluded.moves,
			turn = excluded.turn,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, s.rebind(query),
		rec.ID,
		int(rec.Mode),
		string(rec.Colour1),
		string(rec.Colour2),
		rec.Player1,
		rec.Player2,
		string(movesJSON),
		string(rec.Turn),
		toMillis(rec.CreatedAt),
		toMillis(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (*domain.Participant, error) {
	var (
		p                    domain.Participant
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.Name, &p.Played, &p.Won, &p.Lost, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func scanSession(row scanner) (*domain.SessionRecord, error) {
	var (
		rec                  domain.SessionRecord
		mode                 int
		colour1, colour2     string
		movesJSON, turn      string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.ID, &mode, &colour1, &colour2, &rec.Player1, &rec.Player2,
		&movesJSON, &turn, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal([]byte(movesJSON), &rec.Moves); err != nil {
		return nil, fmt.Errorf("unmarshal moves: %w", err)
	}
	rec.Mode = domain.Mode(mode)
	rec.Colour1 = domain.Colour(colour1)
	rec.Colour2 = domain.Colour(colour2)
	rec.Turn = domain.Colour(turn)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
