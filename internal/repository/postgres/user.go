package postgres

import (
	"context"
	"errors"
	"fmt"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, avatar, push_token, current_streak, best_streak, total_check_ins, last_check_in, created_at`

// CreateUser inserts a new user with their aggregate streak fields.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.Avatar, user.PushToken,
		user.CurrentStreak, user.BestStreak, user.TotalCheckIns,
		user.LastCheckIn, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRow(ctx, query, id), id)
}

// GetUserByEmail retrieves a user by their unique email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanUser(s.db.QueryRow(ctx, query, email), email)
}

func (s *Store) scanUser(row pgx.Row, key string) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Avatar, &user.PushToken,
		&user.CurrentStreak, &user.BestStreak, &user.TotalCheckIns,
		&user.LastCheckIn, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUserStats overwrites the derived streak aggregates for a user.
func (s *Store) UpdateUserStats(ctx context.Context, userID string, stats models.Stats) error {
	query := `
		UPDATE users
		SET current_streak = $1, best_streak = $2, total_check_ins = $3, last_check_in = $4
		WHERE id = $5
	`
	result, err := s.db.Exec(ctx, query,
		stats.CurrentStreak, stats.BestStreak, stats.TotalCheckIns, stats.LastCheckIn, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// UpdateUserPushToken updates the push token for a user.
func (s *Store) UpdateUserPushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1 WHERE id = $2`
	result, err := s.db.Exec(ctx, query, pushToken, userID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// DeleteUser removes a user record. Only the migration reconciler deletes
// users, after re-pointing everything they own.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	query := `DELETE FROM users WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
