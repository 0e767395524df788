package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jan-sahayak/server/internal/agent/model"
	errx "github.com/jan-sahayak/server/internal/core/error"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// Driver names registered by the blank imports above.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const createSessions = `
CREATE TABLE IF NOT EXISTS sessions (
	thread_id  TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLSessionRepository stores sessions as JSON rows in SQLite or Postgres.
type SQLSessionRepository struct {
	db *sqlx.DB
}

// OpenSQL connects and creates the sessions table when missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLSessionRepository, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; avoids SQLITE_BUSY under concurrent turns
		db.SetMaxOpenConns(1)
	}
	r, err := NewSQLSessionRepository(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func NewSQLSessionRepository(ctx context.Context, db *sqlx.DB) (*SQLSessionRepository, error) {
	if _, err := db.ExecContext(ctx, createSessions); err != nil {
		return nil, fmt.Errorf("migrate sessions table: %w", err)
	}
	return &SQLSessionRepository{db: db}, nil
}

func (r *SQLSessionRepository) Load(ctx context.Context, threadID string) (*model.Session, error) {
	var data string
	q := r.db.Rebind(`SELECT data FROM sessions WHERE thread_id = ?`)
	if err := r.db.GetContext(ctx, &data, q, threadID); err != nil {
		return nil, errx.WrapStore(err)
	}
	return decodeSession([]byte(data))
}

func (r *SQLSessionRepository) Save(ctx context.Context, s *model.Session) error {
	b, err := encodeSession(s)
	if err != nil {
		return err
	}
	q := r.db.Rebind(`
INSERT INTO sessions (thread_id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT (thread_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, q, s.ThreadID, string(b), time.Now().UTC()); err != nil {
		logx.Error().Err(err).Str("thread_id", s.ThreadID).Msg("failed to save session")
		return errx.WrapStore(err)
	}
	return nil
}

func (r *SQLSessionRepository) Clear(ctx context.Context, threadID string) error {
	q := r.db.Rebind(`DELETE FROM sessions WHERE thread_id = ?`)
	if _, err := r.db.ExecContext(ctx, q, threadID); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to delete session")
		return errx.WrapStore(err)
	}
	return nil
}

func (r *SQLSessionRepository) Close() error {
	return r.db.Close()
}

var _ model.SessionRepository = (*SQLSessionRepository)(nil)
