package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/repository/local"
)

func newTestLocalService(t *testing.T) *LocalCheckInService {
	t.Helper()
	store, err := local.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLocalCheckInService(store)
}

func TestLocalCheckInLifecycle(t *testing.T) {
	svc := newTestLocalService(t)
	ctx := context.Background()

	clock := baseTime
	svc.now = func() time.Time { return clock }

	note := "pushups"
	first, err := svc.Create(ctx, nil, &note)
	require.NoError(t, err)

	_, err = svc.Create(ctx, nil, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict, "one check-in per day")

	clock = baseTime.AddDate(0, 0, 1)
	_, err = svc.Create(ctx, nil, nil)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 2, stats.TotalCheckIns)

	// Archiving day 1 drops current but best is sticky.
	require.NoError(t, svc.Archive(ctx, first.ID))
	require.NoError(t, svc.Archive(ctx, first.ID), "second archive is a no-op")

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.BestStreak)
	assert.Equal(t, 1, stats.TotalCheckIns)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLocalUpdateContent(t *testing.T) {
	svc := newTestLocalService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return baseTime }

	note := "morning run"
	created, err := svc.Create(ctx, nil, &note)
	require.NoError(t, err)

	photo := "file:///photos/run.jpg"
	require.NoError(t, svc.Update(ctx, created.ID, &photo, nil))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Photo)
	assert.Equal(t, photo, *list[0].Photo)
	require.NotNil(t, list[0].Note)
	assert.Equal(t, note, *list[0].Note)

	require.NoError(t, svc.Archive(ctx, created.ID))
	err = svc.Update(ctx, created.ID, &photo, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}
