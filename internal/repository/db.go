package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

type scanner interface {
	Scan(dest ...any) error
}

// SQLStore is the key-value boundary backed by the kv_entries table. It
// works on SQLite and Postgres; queries are written with ? placeholders and
// rebound per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

const upsertEntry = `INSERT INTO kv_entries (entry_key, entry_value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT entry_value FROM kv_entries WHERE entry_key = ?`), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("Get: %w", err)
	}
	return value, true, nil
}

func (s *SQLStore) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := `SELECT entry_key, entry_value FROM kv_entries WHERE entry_key IN (` +
		strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ") + `)`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("MultiGet: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		k, v, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("MultiGet: scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MultiGet: rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(upsertEntry), key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// MultiSet writes every pair in one transaction: either all land or none.
func (s *SQLStore) MultiSet(ctx context.Context, pairs ...KeyValue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("MultiSet: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(upsertEntry))
	if err != nil {
		return fmt.Errorf("MultiSet: prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.Key, p.Value, now); err != nil {
			return fmt.Errorf("MultiSet: %s: %w", p.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("MultiSet: commit: %w", err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv_entries WHERE entry_key = ?`), key)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanEntry(s scanner) (string, string, error) {
	var k, v string
	if err := s.Scan(&k, &v); err != nil {
		return "", "", err
	}
	return k, v, nil
}
