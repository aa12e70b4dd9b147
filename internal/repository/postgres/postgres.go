// Package postgres implements the repository.Store contract on top of a
// pgx connection pool. Every mutation issued through WithinTx runs inside
// one serializable transaction; conflicts are retried here so the services
// above never see them.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"fitsquad-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const maxTxRetries = 3

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same query methods serve both pooled and transactional calls.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.Store against PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

// New creates a Store over an established connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithinTx runs fn inside a serializable transaction, retrying on
// serialization failures (SQLSTATE 40001). A nested call joins the open
// transaction instead of starting a new one.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		err = fn(&Store{pool: s.pool, db: tx, inTx: true})
		if err == nil {
			err = tx.Commit(ctx)
			if err == nil {
				return nil
			}
		} else {
			_ = tx.Rollback(ctx)
		}

		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("Retrying serializable transaction")
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxRetries, lastErr)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			avatar          TEXT,
			push_token      TEXT,
			current_streak  INT NOT NULL DEFAULT 0,
			best_streak     INT NOT NULL DEFAULT 0,
			total_check_ins INT NOT NULL DEFAULT 0,
			last_check_in   TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS groups (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			invite_code  TEXT NOT NULL UNIQUE,
			created_by   TEXT NOT NULL REFERENCES users(id),
			group_streak INT NOT NULL DEFAULT 0,
			is_archived  BOOLEAN NOT NULL DEFAULT FALSE,
			archived_at  TIMESTAMPTZ,
			created_at   TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS group_memberships (
			group_id  TEXT NOT NULL REFERENCES groups(id),
			user_id   TEXT NOT NULL REFERENCES users(id),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			joined_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (group_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS check_ins (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			group_id    TEXT REFERENCES groups(id),
			ts          TIMESTAMPTZ NOT NULL,
			photo       TEXT,
			note        TEXT,
			is_archived BOOLEAN NOT NULL DEFAULT FALSE,
			archived_at TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_check_ins_user_ts
			ON check_ins (user_id, ts) WHERE NOT is_archived;
		CREATE INDEX IF NOT EXISTS idx_check_ins_group_ts
			ON check_ins (group_id, ts) WHERE NOT is_archived;
		CREATE INDEX IF NOT EXISTS idx_group_memberships_user
			ON group_memberships (user_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
