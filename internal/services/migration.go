package services

import (
	"context"
	"errors"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository"
	"fitsquad-backend/internal/repository/local"
	"fitsquad-backend/internal/streak"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MigrationService reconciles an anonymous identity into an authenticated
// one at sign-in. The whole merge runs as a single transaction: either the
// destination ends up owning everything and the anonymous record is gone,
// or nothing changed.
type MigrationService struct {
	store repository.Store
	now   func() time.Time
}

// NewMigrationService creates a new migration service.
func NewMigrationService(store repository.Store) *MigrationService {
	return &MigrationService{store: store, now: time.Now}
}

// MigrateAnonymousUser merges the anonymous user's record into the account
// behind newEmail and re-points everything the anonymous identity owned.
// Returns the destination user id. A missing anonymous user is a no-op,
// not an error: there is simply nothing to migrate.
func (s *MigrationService) MigrateAnonymousUser(ctx context.Context, anonymousEmail, newEmail string) (string, error) {
	var destID string
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		anon, err := tx.GetUserByEmail(ctx, anonymousEmail)
		if errors.Is(err, apperror.ErrNotFound) {
			if dest, destErr := tx.GetUserByEmail(ctx, newEmail); destErr == nil {
				destID = dest.ID
			}
			return nil
		}
		if err != nil {
			return err
		}

		dest, err := tx.GetUserByEmail(ctx, newEmail)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			// Fresh destination: copy the anonymous record verbatim,
			// keeping its createdAt so the streak history's origin is
			// preserved.
			dest = &models.User{
				ID:            uuid.New().String(),
				Name:          anon.Name,
				Email:         newEmail,
				Avatar:        anon.Avatar,
				PushToken:     anon.PushToken,
				CurrentStreak: anon.CurrentStreak,
				BestStreak:    anon.BestStreak,
				TotalCheckIns: anon.TotalCheckIns,
				LastCheckIn:   anon.LastCheckIn,
				CreatedAt:     anon.CreatedAt,
			}
			if err := tx.CreateUser(ctx, dest); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			merged := mergeStats(userStats(dest), userStats(anon))
			if err := tx.UpdateUserStats(ctx, dest.ID, merged); err != nil {
				return err
			}
		}

		if err := tx.ReassignCheckIns(ctx, anon.ID, dest.ID); err != nil {
			return err
		}

		memberships, err := tx.ListMembershipsByUser(ctx, anon.ID)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			_, err := tx.GetMembership(ctx, m.GroupID, dest.ID)
			switch {
			case err == nil:
				// Destination already belongs to this group; drop the
				// anonymous duplicate instead of re-pointing it.
				if err := tx.DeleteMembership(ctx, m.GroupID, anon.ID); err != nil {
					return err
				}
			case errors.Is(err, apperror.ErrNotFound):
				if err := tx.ReassignMembership(ctx, m.GroupID, anon.ID, dest.ID); err != nil {
					return err
				}
			default:
				return err
			}
		}

		if err := tx.ReassignGroupCreator(ctx, anon.ID, dest.ID); err != nil {
			return err
		}
		if err := tx.DeleteUser(ctx, anon.ID); err != nil {
			return err
		}

		destID = dest.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	return destID, nil
}

// ImportLocalHistory drains a device's local store into the server record
// of the signed-in user: local check-ins replay as personal check-ins
// (days already occupied on the server are skipped), the stats are fully
// recomputed with the local best streak as the floor, and the local store
// is cleared. Failures before the clear leave the device data intact.
func (s *MigrationService) ImportLocalHistory(ctx context.Context, userID string, device *local.Store) error {
	localCheckIns, err := device.ListActiveCheckIns(ctx)
	if err != nil {
		return err
	}
	localStats, err := device.GetStats(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		for i := range localCheckIns {
			lci := &localCheckIns[i]
			existing, err := tx.GetActiveCheckInForDay(ctx, userID, streak.DayKey(lci.Timestamp))
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			// Group tags are dropped on replay: the device cannot have
			// joined server-side groups while anonymous.
			checkIn := &models.CheckIn{
				ID:        uuid.New().String(),
				UserID:    userID,
				Timestamp: lci.Timestamp,
				Photo:     lci.Photo,
				Note:      lci.Note,
				CreatedAt: now,
			}
			if err := tx.CreateCheckIn(ctx, checkIn); err != nil {
				return err
			}
		}

		prevBest := user.BestStreak
		if localStats.BestStreak > prevBest {
			prevBest = localStats.BestStreak
		}
		all, err := tx.ListActiveCheckIns(ctx, userID)
		if err != nil {
			return err
		}
		stats := streak.Compute(all, prevBest, now)
		return tx.UpdateUserStats(ctx, userID, stats)
	})
	if err != nil {
		return err
	}

	if err := device.Clear(ctx); err != nil {
		// The server already holds the history; a dirty local store only
		// risks re-importing, which the per-day skip absorbs.
		log.Warn().Err(err).Msg("Failed to clear local store after import")
	}
	return nil
}

// mergeStats folds the anonymous aggregates into the destination's.
// Streaks take the max of the two; totals add up; lastCheckIn prefers the
// anonymous side.
func mergeStats(dest, anon models.Stats) models.Stats {
	merged := models.Stats{
		CurrentStreak: dest.CurrentStreak,
		BestStreak:    dest.BestStreak,
		TotalCheckIns: dest.TotalCheckIns + anon.TotalCheckIns,
		LastCheckIn:   dest.LastCheckIn,
	}
	if anon.CurrentStreak > merged.CurrentStreak {
		merged.CurrentStreak = anon.CurrentStreak
	}
	if anon.BestStreak > merged.BestStreak {
		merged.BestStreak = anon.BestStreak
	}
	if anon.LastCheckIn != nil {
		merged.LastCheckIn = anon.LastCheckIn
	}
	return merged
}
