package services

import (
	"context"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository/local"
	"fitsquad-backend/internal/streak"

	"github.com/google/uuid"
)

// LocalCheckInService is the device-mode check-in lifecycle used while no
// authenticated user exists. The data volume on a device is tiny, so every
// mutation is followed by a full stats recompute instead of the
// incremental path the server uses.
type LocalCheckInService struct {
	store *local.Store
	now   func() time.Time
}

// NewLocalCheckInService creates a new device-mode service.
func NewLocalCheckInService(store *local.Store) *LocalCheckInService {
	return &LocalCheckInService{store: store, now: time.Now}
}

// Create records a local check-in for today. Same one-per-day precondition
// as the server path.
func (s *LocalCheckInService) Create(ctx context.Context, photo, note *string) (*models.LocalCheckIn, error) {
	now := s.now()
	existing, err := s.store.GetActiveCheckInForDay(ctx, streak.Today(now))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.AlreadyCheckedInToday(models.LocalUserID)
	}

	checkIn := &models.LocalCheckIn{
		CheckIn: models.CheckIn{
			ID:        uuid.New().String(),
			UserID:    models.LocalUserID,
			Timestamp: now,
			Photo:     photo,
			Note:      note,
			CreatedAt: now,
		},
	}
	if err := s.store.CreateCheckIn(ctx, checkIn); err != nil {
		return nil, err
	}
	if err := s.updateStats(ctx, now); err != nil {
		return nil, err
	}
	return checkIn, nil
}

// Update mutates a local check-in's photo and note. Nil fields keep their
// current value.
func (s *LocalCheckInService) Update(ctx context.Context, checkInID string, photo, note *string) error {
	checkIn, err := s.store.GetCheckIn(ctx, checkInID)
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
	if err := s.store.UpdateCheckInContent(ctx, checkInID, photo, note); err != nil {
		return err
	}
	return s.updateStats(ctx, s.now())
}

// Archive soft-deletes a local check-in; already-archived is a no-op.
func (s *LocalCheckInService) Archive(ctx context.Context, checkInID string) error {
	now := s.now()
	checkIn, err := s.store.GetCheckIn(ctx, checkInID)
	if err != nil {
		return err
	}
	if checkIn.IsArchived {
		return nil
	}
	if err := s.store.ArchiveCheckIn(ctx, checkInID, now); err != nil {
		return err
	}
	return s.updateStats(ctx, now)
}

// Stats returns the cached derived stats.
func (s *LocalCheckInService) Stats(ctx context.Context) (models.Stats, error) {
	return s.store.GetStats(ctx)
}

// List returns the device's active check-ins, newest first.
func (s *LocalCheckInService) List(ctx context.Context) ([]models.LocalCheckIn, error) {
	return s.store.ListActiveCheckIns(ctx)
}

func (s *LocalCheckInService) updateStats(ctx context.Context, now time.Time) error {
	prev, err := s.store.GetStats(ctx)
	if err != nil {
		return err
	}
	localCheckIns, err := s.store.ListActiveCheckIns(ctx)
	if err != nil {
		return err
	}
	checkIns := make([]models.CheckIn, len(localCheckIns))
	for i, lci := range localCheckIns {
		checkIns[i] = lci.CheckIn
	}
	stats := streak.Compute(checkIns, prev.BestStreak, now)
	return s.store.SaveStats(ctx, stats)
}
