package local

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/streak"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newLocalCheckIn(ts time.Time) *models.LocalCheckIn {
	return &models.LocalCheckIn{
		CheckIn: models.CheckIn{
			ID:        uuid.New().String(),
			UserID:    models.LocalUserID,
			Timestamp: ts,
			CreatedAt: ts,
		},
	}
}

func TestCreateAndGetCheckIn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	note := "morning run"
	ci := newLocalCheckIn(ts)
	ci.Note = &note

	require.NoError(t, store.CreateCheckIn(ctx, ci))

	got, err := store.GetCheckIn(ctx, ci.ID)
	require.NoError(t, err)
	assert.Equal(t, ci.ID, got.ID)
	assert.Equal(t, models.LocalUserID, got.UserID)
	assert.Equal(t, ts.UnixMilli(), got.Timestamp.UnixMilli())
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)
	assert.Nil(t, got.GroupID)
	assert.False(t, got.IsArchived)
	assert.False(t, got.IsSynced)
}

func TestGetCheckInNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCheckIn(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetActiveCheckInForDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	day := streak.DayKey(ts)

	ci := newLocalCheckIn(ts)
	require.NoError(t, store.CreateCheckIn(ctx, ci))

	got, err := store.GetActiveCheckInForDay(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ci.ID, got.ID)

	// The previous day is empty.
	got, err = store.GetActiveCheckInForDay(ctx, day-streak.DayMillis)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestArchiveFreesDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	day := streak.DayKey(ts)

	ci := newLocalCheckIn(ts)
	require.NoError(t, store.CreateCheckIn(ctx, ci))
	require.NoError(t, store.ArchiveCheckIn(ctx, ci.ID, ts.Add(time.Hour)))

	got, err := store.GetActiveCheckInForDay(ctx, day)
	require.NoError(t, err)
	assert.Nil(t, got, "archiving must free the day for a new check-in")

	archived, err := store.GetCheckIn(ctx, ci.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	require.NotNil(t, archived.ArchivedAt)
}

func TestUpdateCheckInContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ci := newLocalCheckIn(time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.CreateCheckIn(ctx, ci))

	photo := "file:///photos/abc.jpg"
	note := "updated"
	require.NoError(t, store.UpdateCheckInContent(ctx, ci.ID, &photo, &note))

	got, err := store.GetCheckIn(ctx, ci.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Photo)
	assert.Equal(t, photo, *got.Photo)
	require.NotNil(t, got.Note)
	assert.Equal(t, note, *got.Note)

	err = store.UpdateCheckInContent(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListActiveCheckIns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	older := newLocalCheckIn(base.AddDate(0, 0, -1))
	newer := newLocalCheckIn(base)
	archived := newLocalCheckIn(base.AddDate(0, 0, -2))
	require.NoError(t, store.CreateCheckIn(ctx, older))
	require.NoError(t, store.CreateCheckIn(ctx, newer))
	require.NoError(t, store.CreateCheckIn(ctx, archived))
	require.NoError(t, store.ArchiveCheckIn(ctx, archived.ID, base))

	list, err := store.ListActiveCheckIns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
	assert.Equal(t, older.ID, list[1].ID)
}

func TestStatsRoundTripAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Fresh store reports zero stats.
	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, stats)

	last := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	saved := models.Stats{CurrentStreak: 3, BestStreak: 7, TotalCheckIns: 10, LastCheckIn: &last}
	require.NoError(t, store.SaveStats(ctx, saved))

	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 7, stats.BestStreak)
	assert.Equal(t, 10, stats.TotalCheckIns)
	require.NotNil(t, stats.LastCheckIn)
	assert.Equal(t, last.UnixMilli(), stats.LastCheckIn.UnixMilli())

	// Overwrite wins.
	saved.CurrentStreak = 4
	require.NoError(t, store.SaveStats(ctx, saved))
	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.CurrentStreak)

	require.NoError(t, store.Clear(ctx))
	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{}, stats)
	list, err := store.ListActiveCheckIns(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
