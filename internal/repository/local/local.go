// Package local implements the device-side check-in store used while no
// authenticated user exists. It is backed by an embedded sqlite database
// (pure Go driver, so device builds need no cgo) and holds only the
// device's own unsynced check-ins plus a cached stats row. Access is
// sequential; there are no concurrent writers on a device.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/streak"

	_ "modernc.org/sqlite"
)

// Store is the on-device check-in repository.
type Store struct {
	conn *sql.DB
}

// New opens (or creates) the local database at path. Use ":memory:" for
// tests.
func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping local store: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS local_check_ins (
			id          TEXT PRIMARY KEY,
			group_id    TEXT,
			ts          INTEGER NOT NULL,
			photo       TEXT,
			note        TEXT,
			is_archived INTEGER NOT NULL DEFAULT 0,
			archived_at INTEGER,
			created_at  INTEGER NOT NULL,
			is_synced   INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_local_check_ins_ts ON local_check_ins(ts);

		CREATE TABLE IF NOT EXISTS local_stats (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			current_streak  INTEGER NOT NULL DEFAULT 0,
			best_streak     INTEGER NOT NULL DEFAULT 0,
			total_check_ins INTEGER NOT NULL DEFAULT 0,
			last_check_in   INTEGER
		);
	`)
	return err
}

const localColumns = `id, group_id, ts, photo, note, is_archived, archived_at, created_at, is_synced`

// CreateCheckIn inserts a new local check-in.
func (s *Store) CreateCheckIn(ctx context.Context, checkIn *models.LocalCheckIn) error {
	query := `
		INSERT INTO local_check_ins (` + localColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.ExecContext(ctx, query,
		checkIn.ID, checkIn.GroupID, checkIn.Timestamp.UnixMilli(),
		checkIn.Photo, checkIn.Note,
		boolToInt(checkIn.IsArchived), timeToMillis(checkIn.ArchivedAt),
		checkIn.CreatedAt.UnixMilli(), boolToInt(checkIn.IsSynced),
	)
	if err != nil {
		return fmt.Errorf("failed to create local check-in: %w", err)
	}
	return nil
}

// GetCheckIn retrieves a local check-in by ID, archived or not.
func (s *Store) GetCheckIn(ctx context.Context, id string) (*models.LocalCheckIn, error) {
	query := `SELECT ` + localColumns + ` FROM local_check_ins WHERE id = ?`
	return scanLocalCheckIn(s.conn.QueryRowContext(ctx, query, id), id)
}

// GetActiveCheckInForDay returns the active check-in on the given local
// day, or nil when none exists.
func (s *Store) GetActiveCheckInForDay(ctx context.Context, dayKey int64) (*models.LocalCheckIn, error) {
	query := `
		SELECT ` + localColumns + `
		FROM local_check_ins
		WHERE is_archived = 0 AND ts >= ? AND ts < ?
		ORDER BY ts DESC
		LIMIT 1
	`
	ci, err := scanLocalCheckIn(s.conn.QueryRowContext(ctx, query, dayKey, dayKey+streak.DayMillis), "")
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ci, nil
}

// ListActiveCheckIns lists all non-archived local check-ins, newest first.
func (s *Store) ListActiveCheckIns(ctx context.Context) ([]models.LocalCheckIn, error) {
	query := `
		SELECT ` + localColumns + `
		FROM local_check_ins
		WHERE is_archived = 0
		ORDER BY ts DESC
	`
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list local check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []models.LocalCheckIn
	for rows.Next() {
		ci, err := scanLocalCheckInRow(rows)
		if err != nil {
			return nil, err
		}
		checkIns = append(checkIns, *ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating local check-ins: %w", err)
	}
	return checkIns, nil
}

// UpdateCheckInContent mutates photo and note only.
func (s *Store) UpdateCheckInContent(ctx context.Context, id string, photo, note *string) error {
	query := `UPDATE local_check_ins SET photo = ?, note = ? WHERE id = ?`
	result, err := s.conn.ExecContext(ctx, query, photo, note, id)
	if err != nil {
		return fmt.Errorf("failed to update local check-in: %w", err)
	}
	return requireRow(result, id)
}

// ArchiveCheckIn marks a local check-in archived.
func (s *Store) ArchiveCheckIn(ctx context.Context, id string, archivedAt time.Time) error {
	query := `UPDATE local_check_ins SET is_archived = 1, archived_at = ? WHERE id = ?`
	result, err := s.conn.ExecContext(ctx, query, archivedAt.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to archive local check-in: %w", err)
	}
	return requireRow(result, id)
}

// GetStats reads the cached derived stats. A store that has never been
// written returns zero stats.
func (s *Store) GetStats(ctx context.Context) (models.Stats, error) {
	query := `
		SELECT current_streak, best_streak, total_check_ins, last_check_in
		FROM local_stats WHERE id = 1
	`
	var stats models.Stats
	var last sql.NullInt64
	err := s.conn.QueryRowContext(ctx, query).Scan(
		&stats.CurrentStreak, &stats.BestStreak, &stats.TotalCheckIns, &last,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Stats{}, nil
		}
		return models.Stats{}, fmt.Errorf("failed to get local stats: %w", err)
	}
	if last.Valid {
		ts := time.UnixMilli(last.Int64)
		stats.LastCheckIn = &ts
	}
	return stats, nil
}

// SaveStats overwrites the cached derived stats.
func (s *Store) SaveStats(ctx context.Context, stats models.Stats) error {
	query := `
		INSERT INTO local_stats (id, current_streak, best_streak, total_check_ins, last_check_in)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			total_check_ins = excluded.total_check_ins,
			last_check_in = excluded.last_check_in
	`
	_, err := s.conn.ExecContext(ctx, query,
		stats.CurrentStreak, stats.BestStreak, stats.TotalCheckIns,
		timeToMillis(stats.LastCheckIn),
	)
	if err != nil {
		return fmt.Errorf("failed to save local stats: %w", err)
	}
	return nil
}

// Clear wipes all local data. Called after a successful migration so the
// device starts clean under the authenticated identity.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM local_check_ins`); err != nil {
		return fmt.Errorf("failed to clear local check-ins: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM local_stats`); err != nil {
		return fmt.Errorf("failed to clear local stats: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocalCheckIn(row *sql.Row, key string) (*models.LocalCheckIn, error) {
	ci, err := scanFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("check-in", key)
		}
		return nil, err
	}
	return ci, nil
}

func scanLocalCheckInRow(rows *sql.Rows) (*models.LocalCheckIn, error) {
	return scanFrom(rows)
}

func scanFrom(scanner rowScanner) (*models.LocalCheckIn, error) {
	var ci models.LocalCheckIn
	var groupID, photo, note sql.NullString
	var ts, createdAt int64
	var isArchived, isSynced int
	var archivedAt sql.NullInt64

	err := scanner.Scan(
		&ci.ID, &groupID, &ts, &photo, &note,
		&isArchived, &archivedAt, &createdAt, &isSynced,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan local check-in: %w", err)
	}

	ci.UserID = models.LocalUserID
	ci.Timestamp = time.UnixMilli(ts)
	ci.CreatedAt = time.UnixMilli(createdAt)
	ci.IsArchived = isArchived != 0
	ci.IsSynced = isSynced != 0
	if groupID.Valid {
		ci.GroupID = &groupID.String
	}
	if photo.Valid {
		ci.Photo = &photo.String
	}
	if note.Valid {
		ci.Note = &note.String
	}
	if archivedAt.Valid {
		at := time.UnixMilli(archivedAt.Int64)
		ci.ArchivedAt = &at
	}
	return &ci, nil
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("check-in", id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	millis := t.UnixMilli()
	return &millis
}
