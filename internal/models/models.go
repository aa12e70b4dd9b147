package models

import "time"

// LocalUserID is the sentinel owner id for check-ins recorded on a device
// before the user has signed in.
const LocalUserID = "local"

// User represents a user in the system together with their streak aggregates.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Avatar        *string    `json:"avatar,omitempty"`
	PushToken     *string    `json:"push_token,omitempty"`
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	TotalCheckIns int        `json:"total_check_ins"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Group represents an accountability group of up to four members.
type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	InviteCode  string     `json:"invite_code"`
	CreatedBy   string     `json:"created_by"`
	GroupStreak int        `json:"group_streak"`
	IsArchived  bool       `json:"is_archived"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// GroupMembership ties a user to a group. Only active memberships count
// toward the group streak.
type GroupMembership struct {
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}

// CheckIn represents a single daily check-in. Timestamp is the creation
// instant and is authoritative for day bucketing; it never changes after
// creation, and neither do UserID or GroupID.
type CheckIn struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	GroupID    *string    `json:"group_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Photo      *string    `json:"photo,omitempty"`
	Note       *string    `json:"note,omitempty"`
	IsArchived bool       `json:"is_archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// LocalCheckIn is the device-only variant of CheckIn used while no
// authenticated user exists. UserID is always LocalUserID.
type LocalCheckIn struct {
	CheckIn
	IsSynced bool `json:"is_synced"`
}

// Stats is the derived streak state for a single identity.
type Stats struct {
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	TotalCheckIns int        `json:"total_check_ins"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
}
