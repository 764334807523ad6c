package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the live session record with the given id, or nil if none exists.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	const query = `
		SELECT session_id, payload, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > $2
	`

	var row sessionRow
	if err := s.db.GetContext(ctx, &row, query, id, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toRecord(), nil
}

// Put inserts or overwrites the session record.
func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	const query = `
		INSERT INTO sessions (session_id, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Payload, rec.ExpiresAt)
	return err
}

// Delete removes the session record, if present.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE session_id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpired removes all expired session records.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	result, err := s.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// sessionRow is a database row representation of Record.
type sessionRow struct {
	ID        string    `db:"session_id"`
	Payload   []byte    `db:"payload"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (r *sessionRow) toRecord() *Record {
	return &Record{
		ID:        r.ID,
		Payload:   r.Payload,
		ExpiresAt: r.ExpiresAt,
	}
}
