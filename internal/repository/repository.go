// Package repository defines the typed storage contract used by the
// services. Two implementations exist: postgres (server-authoritative) and
// local (on-device sqlite, check-ins only). Methods are typed per query so
// callers never pass ad-hoc filters; day-range lookups take a day key as
// produced by the streak package.
package repository

import (
	"context"
	"time"

	"fitsquad-backend/internal/models"
)

// Store is the server-side storage contract. Reads and writes issued inside
// WithinTx are atomic and serializable relative to other transactions
// touching the same records.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits iff fn returns nil. Serialization conflicts are
	// retried transparently; fn must therefore be safe to re-run. Nested
	// calls join the enclosing transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error

	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserStats(ctx context.Context, userID string, stats models.Stats) error
	UpdateUserPushToken(ctx context.Context, userID string, pushToken *string) error
	DeleteUser(ctx context.Context, userID string) error

	// Groups.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	UpdateGroupStreak(ctx context.Context, groupID string, streak int) error
	ArchiveGroup(ctx context.Context, groupID string, archivedAt time.Time) error
	ReassignGroupCreator(ctx context.Context, fromUserID, toUserID string) error

	// Memberships.
	AddMembership(ctx context.Context, membership *models.GroupMembership) error
	GetMembership(ctx context.Context, groupID, userID string) (*models.GroupMembership, error)
	ListActiveMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error)
	CountActiveMembers(ctx context.Context, groupID string) (int, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]models.GroupMembership, error)
	SetMembershipActive(ctx context.Context, groupID, userID string, active bool) error
	ReassignMembership(ctx context.Context, groupID, fromUserID, toUserID string) error
	DeleteMembership(ctx context.Context, groupID, userID string) error

	// Check-ins. GetActiveCheckInForDay returns (nil, nil) when the user
	// has no active check-in on that local day.
	CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error
	GetCheckIn(ctx context.Context, id string) (*models.CheckIn, error)
	GetActiveCheckInForDay(ctx context.Context, userID string, dayKey int64) (*models.CheckIn, error)
	ListActiveCheckIns(ctx context.Context, userID string) ([]models.CheckIn, error)
	ListActiveGroupCheckIns(ctx context.Context, groupID string) ([]models.CheckIn, error)
	UpdateCheckInContent(ctx context.Context, id string, photo, note *string) error
	ArchiveCheckIn(ctx context.Context, id string, archivedAt time.Time) error
	ReassignCheckIns(ctx context.Context, fromUserID, toUserID string) error
}
