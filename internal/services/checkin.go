package services

import (
	"context"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository"
	"fitsquad-backend/internal/streak"

	"github.com/google/uuid"
)

// CheckInService drives the check-in lifecycle: absent -> active ->
// archived, with no way back from archived. Each operation runs as one
// serializable transaction so the one-active-check-in-per-day precondition
// and the streak aggregates can never be observed half-updated.
type CheckInService struct {
	store repository.Store
	now   func() time.Time
}

// NewCheckInService creates a new check-in service.
func NewCheckInService(store repository.Store) *CheckInService {
	return &CheckInService{store: store, now: time.Now}
}

// CreateCheckInRequest describes a new check-in. GroupID tags the check-in
// with a group; absent means a personal check-in.
type CreateCheckInRequest struct {
	UserID  string
	GroupID *string
	Photo   *string
	Note    *string
}

// CreateResult carries the created check-in plus the new group streak value
// when this check-in completed today's full attendance.
type CreateResult struct {
	CheckIn     *models.CheckIn
	GroupStreak *int
}

// Create records a new check-in for today. Fails with AlreadyCheckedInToday
// when the user already has an active check-in on the current local day.
// The user's streak advances incrementally; when the check-in targets a
// group, the group streak is updated in the same transaction.
func (s *CheckInService) Create(ctx context.Context, req CreateCheckInRequest) (*CreateResult, error) {
	now := s.now()
	result := &CreateResult{}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.GetUserByID(ctx, req.UserID)
		if err != nil {
			return err
		}

		existing, err := tx.GetActiveCheckInForDay(ctx, req.UserID, streak.Today(now))
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.AlreadyCheckedInToday(req.UserID)
		}

		var group *models.Group
		if req.GroupID != nil {
			group, err = tx.GetGroupByID(ctx, *req.GroupID)
			if err != nil {
				return err
			}
			if group.IsArchived {
				return apperror.GroupArchived(group.ID)
			}
			membership, err := tx.GetMembership(ctx, group.ID, req.UserID)
			if err != nil {
				return err
			}
			if !membership.IsActive {
				return apperror.Forbidden("user is not an active member of this group")
			}
		}

		checkIn := &models.CheckIn{
			ID:        uuid.New().String(),
			UserID:    req.UserID,
			GroupID:   req.GroupID,
			Timestamp: now,
			Photo:     req.Photo,
			Note:      req.Note,
			CreatedAt: now,
		}
		if err := tx.CreateCheckIn(ctx, checkIn); err != nil {
			return err
		}

		yesterday, err := tx.GetActiveCheckInForDay(ctx, req.UserID, streak.Yesterday(now))
		if err != nil {
			return err
		}
		stats := streak.Advance(userStats(user), yesterday != nil, now)
		if err := tx.UpdateUserStats(ctx, user.ID, stats); err != nil {
			return err
		}

		if group != nil {
			memberDays, err := loadGroupDays(ctx, tx, group.ID)
			if err != nil {
				return err
			}
			next := streak.AdvanceGroup(group.GroupStreak, memberDays, now)
			if next != group.GroupStreak {
				if err := tx.UpdateGroupStreak(ctx, group.ID, next); err != nil {
					return err
				}
				result.GroupStreak = &next
			}
		}

		result.CheckIn = checkIn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update mutates a check-in's photo and note. It never touches the
// timestamp, owner or group tag, so no streak state changes. Nil fields
// keep their current value.
func (s *CheckInService) Update(ctx context.Context, checkInID string, photo, note *string) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		checkIn, err := tx.GetCheckIn(ctx, checkInID)
		if err != nil {
			return err
		}
		if checkIn.IsArchived {
			return apperror.AlreadyArchived(checkInID)
		}
		if photo == nil {
			photo = checkIn.Photo
		}
		if note == nil {
			note = checkIn.Note
		}
		return tx.UpdateCheckInContent(ctx, checkInID, photo, note)
	})
}

// Archive soft-deletes a check-in and fully recomputes the owner's streak
// and, when the check-in was tagged with a group, the group's streak.
// Archiving an already-archived check-in is a no-op success, which keeps
// the operation safe under storage-level retries.
func (s *CheckInService) Archive(ctx context.Context, checkInID string) error {
	now := s.now()
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		checkIn, err := tx.GetCheckIn(ctx, checkInID)
		if err != nil {
			return err
		}
		if checkIn.IsArchived {
			return nil
		}
		if err := tx.ArchiveCheckIn(ctx, checkInID, now); err != nil {
			return err
		}

		user, err := tx.GetUserByID(ctx, checkIn.UserID)
		if err != nil {
			return err
		}
		remaining, err := tx.ListActiveCheckIns(ctx, checkIn.UserID)
		if err != nil {
			return err
		}
		stats := streak.Compute(remaining, user.BestStreak, now)
		if err := tx.UpdateUserStats(ctx, user.ID, stats); err != nil {
			return err
		}

		if checkIn.GroupID != nil {
			group, err := tx.GetGroupByID(ctx, *checkIn.GroupID)
			if err != nil {
				return err
			}
			memberDays, err := loadGroupDays(ctx, tx, group.ID)
			if err != nil {
				return err
			}
			next := streak.ComputeGroup(memberDays, group.GroupStreak, now)
			if next != group.GroupStreak {
				if err := tx.UpdateGroupStreak(ctx, group.ID, next); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetUserStats returns the user's current aggregate streak state.
func (s *CheckInService) GetUserStats(ctx context.Context, userID string) (models.Stats, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return models.Stats{}, err
	}
	return userStats(user), nil
}

// GetCheckIn retrieves a check-in by ID, archived or not.
func (s *CheckInService) GetCheckIn(ctx context.Context, checkInID string) (*models.CheckIn, error) {
	return s.store.GetCheckIn(ctx, checkInID)
}

// ListUserCheckIns returns the user's active check-ins, newest first.
func (s *CheckInService) ListUserCheckIns(ctx context.Context, userID string) ([]models.CheckIn, error) {
	return s.store.ListActiveCheckIns(ctx, userID)
}

func userStats(user *models.User) models.Stats {
	return models.Stats{
		CurrentStreak: user.CurrentStreak,
		BestStreak:    user.BestStreak,
		TotalCheckIns: user.TotalCheckIns,
		LastCheckIn:   user.LastCheckIn,
	}
}

// loadGroupDays builds the per-active-member day-key sets for a group from
// the check-ins tagged with it. Members without check-ins appear with an
// empty set so full-attendance tests see them.
func loadGroupDays(ctx context.Context, tx repository.Store, groupID string) (map[string]map[int64]struct{}, error) {
	members, err := tx.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	checkIns, err := tx.ListActiveGroupCheckIns(ctx, groupID)
	if err != nil {
		return nil, err
	}

	memberDays := make(map[string]map[int64]struct{}, len(members))
	for _, m := range members {
		memberDays[m.UserID] = make(map[int64]struct{})
	}
	for i := range checkIns {
		ci := &checkIns[i]
		if days, ok := memberDays[ci.UserID]; ok {
			days[streak.DayKey(ci.Timestamp)] = struct{}{}
		}
	}
	return memberDays, nil
}
