package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/streak"

	"github.com/jackc/pgx/v5"
)

const checkInColumns = `id, user_id, group_id, ts, photo, note, is_archived, archived_at, created_at`

// CreateCheckIn inserts a new check-in record.
func (s *Store) CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error {
	query := `
		INSERT INTO check_ins (` + checkInColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		checkIn.ID, checkIn.UserID, checkIn.GroupID, checkIn.Timestamp,
		checkIn.Photo, checkIn.Note, checkIn.IsArchived, checkIn.ArchivedAt,
		checkIn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create check-in: %w", err)
	}
	return nil
}

// GetCheckIn retrieves a check-in by ID, archived or not.
func (s *Store) GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_ins WHERE id = $1`
	var ci models.CheckIn
	err := s.db.QueryRow(ctx, query, id).Scan(
		&ci.ID, &ci.UserID, &ci.GroupID, &ci.Timestamp,
		&ci.Photo, &ci.Note, &ci.IsArchived, &ci.ArchivedAt, &ci.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("check-in", id)
		}
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}
	return &ci, nil
}

// GetActiveCheckInForDay returns the user's active check-in whose timestamp
// falls on the given local day, or nil when none exists.
func (s *Store) GetActiveCheckInForDay(ctx context.Context, userID string, dayKey int64) (*models.CheckIn, error) {
	from := time.UnixMilli(dayKey)
	to := time.UnixMilli(dayKey + streak.DayMillis)
	query := `
		SELECT ` + checkInColumns + `
		FROM check_ins
		WHERE user_id = $1 AND NOT is_archived AND ts >= $2 AND ts < $3
		ORDER BY ts DESC
		LIMIT 1
	`
	var ci models.CheckIn
	err := s.db.QueryRow(ctx, query, userID, from, to).Scan(
		&ci.ID, &ci.UserID, &ci.GroupID, &ci.Timestamp,
		&ci.Photo, &ci.Note, &ci.IsArchived, &ci.ArchivedAt, &ci.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get check-in for day: %w", err)
	}
	return &ci, nil
}

// ListActiveCheckIns lists a user's non-archived check-ins, newest first.
func (s *Store) ListActiveCheckIns(ctx context.Context, userID string) ([]models.CheckIn, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM check_ins
		WHERE user_id = $1 AND NOT is_archived
		ORDER BY ts DESC
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

// ListActiveGroupCheckIns lists every non-archived check-in tagged with the
// group, across all members, newest first.
func (s *Store) ListActiveGroupCheckIns(ctx context.Context, groupID string) ([]models.CheckIn, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM check_ins
		WHERE group_id = $1 AND NOT is_archived
		ORDER BY ts DESC
	`
	rows, err := s.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group check-ins: %w", err)
	}
	defer rows.Close()
	return scanCheckIns(rows)
}

func scanCheckIns(rows pgx.Rows) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	for rows.Next() {
		var ci models.CheckIn
		err := rows.Scan(
			&ci.ID, &ci.UserID, &ci.GroupID, &ci.Timestamp,
			&ci.Photo, &ci.Note, &ci.IsArchived, &ci.ArchivedAt, &ci.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkIns = append(checkIns, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-ins: %w", err)
	}
	return checkIns, nil
}

// UpdateCheckInContent mutates photo and note only. Timestamp, user and
// group never change after creation.
func (s *Store) UpdateCheckInContent(ctx context.Context, id string, photo, note *string) error {
	query := `UPDATE check_ins SET photo = $1, note = $2 WHERE id = $3`
	result, err := s.db.Exec(ctx, query, photo, note, id)
	if err != nil {
		return fmt.Errorf("failed to update check-in: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("check-in", id)
	}
	return nil
}

// ArchiveCheckIn marks a check-in archived.
func (s *Store) ArchiveCheckIn(ctx context.Context, id string, archivedAt time.Time) error {
	query := `UPDATE check_ins SET is_archived = TRUE, archived_at = $1 WHERE id = $2`
	result, err := s.db.Exec(ctx, query, archivedAt, id)
	if err != nil {
		return fmt.Errorf("failed to archive check-in: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("check-in", id)
	}
	return nil
}

// ReassignCheckIns re-points every check-in owned by one user to another
// during anonymous migration.
func (s *Store) ReassignCheckIns(ctx context.Context, fromUserID, toUserID string) error {
	query := `UPDATE check_ins SET user_id = $1 WHERE user_id = $2`
	if _, err := s.db.Exec(ctx, query, toUserID, fromUserID); err != nil {
		return fmt.Errorf("failed to reassign check-ins: %w", err)
	}
	return nil
}
