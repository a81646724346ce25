package progress

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStorage keeps lesson state in the lesson_state table (see internal/db).
type SQLStorage struct {
	db  *sql.DB
	ctx context.Context
}

func NewSQLStorage(db *sql.DB) *SQLStorage {
	return &SQLStorage{db: db, ctx: context.Background()}
}

// WithContext binds the storage to a request context.
func (s *SQLStorage) WithContext(ctx context.Context) *SQLStorage {
	cp := *s
	cp.ctx = ctx
	return &cp
}

func (s *SQLStorage) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(s.ctx, `SELECT state_value FROM lesson_state WHERE state_key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *SQLStorage) Set(key, value string) error {
	_, err := s.db.ExecContext(s.ctx, `INSERT INTO lesson_state (state_key,state_value,updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (state_key) DO UPDATE SET state_value=EXCLUDED.state_value, updated_at=EXCLUDED.updated_at`,
		key, value, time.Now().Unix())
	return err
}
