package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const groupColumns = `id, name, invite_code, created_by, group_streak, is_archived, archived_at, created_at`

// CreateGroup inserts a new group.
func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (` + groupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.Exec(ctx, query,
		group.ID, group.Name, group.InviteCode, group.CreatedBy,
		group.GroupStreak, group.IsArchived, group.ArchivedAt, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetGroupByID retrieves a group by ID.
func (s *Store) GetGroupByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	return s.scanGroup(s.db.QueryRow(ctx, query, id), id)
}

// GetGroupByInviteCode retrieves a group by its invite code.
func (s *Store) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE invite_code = $1`
	return s.scanGroup(s.db.QueryRow(ctx, query, code), code)
}

func (s *Store) scanGroup(row pgx.Row, key string) (*models.Group, error) {
	var group models.Group
	err := row.Scan(
		&group.ID, &group.Name, &group.InviteCode, &group.CreatedBy,
		&group.GroupStreak, &group.IsArchived, &group.ArchivedAt, &group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("group", key)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &group, nil
}

// InviteCodeExists checks if an invite code is already taken.
func (s *Store) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM groups WHERE invite_code = $1)`
	var exists bool
	if err := s.db.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check invite code existence: %w", err)
	}
	return exists, nil
}

// UpdateGroupStreak overwrites a group's streak value.
func (s *Store) UpdateGroupStreak(ctx context.Context, groupID string, streak int) error {
	query := `UPDATE groups SET group_streak = $1 WHERE id = $2`
	result, err := s.db.Exec(ctx, query, streak, groupID)
	if err != nil {
		return fmt.Errorf("failed to update group streak: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("group", groupID)
	}
	return nil
}

// ArchiveGroup marks a group archived.
func (s *Store) ArchiveGroup(ctx context.Context, groupID string, archivedAt time.Time) error {
	query := `UPDATE groups SET is_archived = TRUE, archived_at = $1 WHERE id = $2`
	result, err := s.db.Exec(ctx, query, archivedAt, groupID)
	if err != nil {
		return fmt.Errorf("failed to archive group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("group", groupID)
	}
	return nil
}

// ReassignGroupCreator re-points group creation records from one user to
// another during anonymous migration.
func (s *Store) ReassignGroupCreator(ctx context.Context, fromUserID, toUserID string) error {
	query := `UPDATE groups SET created_by = $1 WHERE created_by = $2`
	if _, err := s.db.Exec(ctx, query, toUserID, fromUserID); err != nil {
		return fmt.Errorf("failed to reassign group creator: %w", err)
	}
	return nil
}

// AddMembership inserts a membership row.
func (s *Store) AddMembership(ctx context.Context, membership *models.GroupMembership) error {
	query := `
		INSERT INTO group_memberships (group_id, user_id, is_active, joined_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.Exec(ctx, query,
		membership.GroupID, membership.UserID, membership.IsActive, membership.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", err)
	}
	return nil
}

// GetMembership retrieves a single membership row.
func (s *Store) GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMembership, error) {
	query := `
		SELECT group_id, user_id, is_active, joined_at
		FROM group_memberships
		WHERE group_id = $1 AND user_id = $2
	`
	var m models.GroupMembership
	err := s.db.QueryRow(ctx, query, groupID, userID).Scan(
		&m.GroupID, &m.UserID, &m.IsActive, &m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("membership", groupID+"/"+userID)
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// ListActiveMembers lists the active memberships of a group.
func (s *Store) ListActiveMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error) {
	query := `
		SELECT group_id, user_id, is_active, joined_at
		FROM group_memberships
		WHERE group_id = $1 AND is_active
		ORDER BY joined_at
	`
	rows, err := s.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

// CountActiveMembers counts the active memberships of a group.
func (s *Store) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	query := `SELECT COUNT(*) FROM group_memberships WHERE group_id = $1 AND is_active`
	var count int
	if err := s.db.QueryRow(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active members: %w", err)
	}
	return count, nil
}

// ListMembershipsByUser lists every membership a user holds, active or not.
func (s *Store) ListMembershipsByUser(ctx context.Context, userID string) ([]models.GroupMembership, error) {
	query := `
		SELECT group_id, user_id, is_active, joined_at
		FROM group_memberships
		WHERE user_id = $1
		ORDER BY joined_at
	`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func scanMemberships(rows pgx.Rows) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	for rows.Next() {
		var m models.GroupMembership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}
	return memberships, nil
}

// SetMembershipActive toggles a membership's active flag.
func (s *Store) SetMembershipActive(ctx context.Context, groupID, userID string, active bool) error {
	query := `UPDATE group_memberships SET is_active = $1 WHERE group_id = $2 AND user_id = $3`
	result, err := s.db.Exec(ctx, query, active, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to set membership active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("membership", groupID+"/"+userID)
	}
	return nil
}

// ReassignMembership re-points one membership row to a new user.
func (s *Store) ReassignMembership(ctx context.Context, groupID, fromUserID, toUserID string) error {
	query := `UPDATE group_memberships SET user_id = $1 WHERE group_id = $2 AND user_id = $3`
	if _, err := s.db.Exec(ctx, query, toUserID, groupID, fromUserID); err != nil {
		return fmt.Errorf("failed to reassign membership: %w", err)
	}
	return nil
}

// DeleteMembership removes a membership row. Used when migration would
// otherwise produce a duplicate membership for the destination user.
func (s *Store) DeleteMembership(ctx context.Context, groupID, userID string) error {
	query := `DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`
	if _, err := s.db.Exec(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}
