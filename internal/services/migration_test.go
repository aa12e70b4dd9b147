package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository/local"
)

func seedUserWithStats(t *testing.T, store *memStore, id, email string, stats models.Stats, createdAt time.Time) {
	t.Helper()
	err := store.CreateUser(context.Background(), &models.User{
		ID:            id,
		Name:          id,
		Email:         email,
		CurrentStreak: stats.CurrentStreak,
		BestStreak:    stats.BestStreak,
		TotalCheckIns: stats.TotalCheckIns,
		LastCheckIn:   stats.LastCheckIn,
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
}

func TestMigrateAnonymousUserToFreshAccount(t *testing.T) {
	store := newMemStore()
	anonCreatedAt := baseTime.AddDate(0, 0, -30)
	last := baseTime.AddDate(0, 0, -1)
	seedUserWithStats(t, store, "anon-1", "anon-abc@device.local", models.Stats{
		CurrentStreak: 3, BestStreak: 7, TotalCheckIns: 10, LastCheckIn: &last,
	}, anonCreatedAt)
	svc := NewMigrationService(store)

	destID, err := svc.MigrateAnonymousUser(context.Background(), "anon-abc@device.local", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, destID)

	dest, err := store.GetUserByID(context.Background(), destID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", dest.Email)
	assert.Equal(t, 3, dest.CurrentStreak)
	assert.Equal(t, 7, dest.BestStreak)
	assert.Equal(t, 10, dest.TotalCheckIns)
	assert.Equal(t, anonCreatedAt, dest.CreatedAt, "history origin is preserved")

	// The anonymous record is gone.
	_, err = store.GetUserByID(context.Background(), "anon-1")
	assert.Error(t, err)
}

func TestMigrateAnonymousUserMergesStats(t *testing.T) {
	store := newMemStore()
	anonLast := baseTime.AddDate(0, 0, -1)
	destLast := baseTime.AddDate(0, 0, -5)
	seedUserWithStats(t, store, "anon-1", "anon-abc@device.local", models.Stats{
		CurrentStreak: 3, BestStreak: 7, TotalCheckIns: 10, LastCheckIn: &anonLast,
	}, baseTime.AddDate(0, 0, -30))
	seedUserWithStats(t, store, "dest-1", "alice@example.com", models.Stats{
		CurrentStreak: 5, BestStreak: 6, TotalCheckIns: 20, LastCheckIn: &destLast,
	}, baseTime.AddDate(0, 0, -60))
	svc := NewMigrationService(store)

	destID, err := svc.MigrateAnonymousUser(context.Background(), "anon-abc@device.local", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dest-1", destID)

	dest, err := store.GetUserByID(context.Background(), "dest-1")
	require.NoError(t, err)
	assert.Equal(t, 5, dest.CurrentStreak, "max of both sides")
	assert.Equal(t, 7, dest.BestStreak, "max of both sides")
	assert.Equal(t, 30, dest.TotalCheckIns, "totals add up")
	require.NotNil(t, dest.LastCheckIn)
	assert.Equal(t, anonLast, *dest.LastCheckIn)
}

func TestMigrateAnonymousUserReassignsOwnership(t *testing.T) {
	store := newMemStore()
	seedUserWithStats(t, store, "anon-1", "anon-abc@device.local", models.Stats{TotalCheckIns: 1}, baseTime)
	seedUserWithStats(t, store, "dest-1", "alice@example.com", models.Stats{}, baseTime)

	// Anonymous user created one group and belongs to a second the
	// destination already belongs to.
	seedGroup(t, store, "owned", "anon-1")
	seedGroup(t, store, "shared", "dest-1", "anon-1")
	require.NoError(t, store.CreateCheckIn(context.Background(), &models.CheckIn{
		ID: uuid.New().String(), UserID: "anon-1", Timestamp: baseTime, CreatedAt: baseTime,
	}))

	svc := NewMigrationService(store)
	destID, err := svc.MigrateAnonymousUser(context.Background(), "anon-abc@device.local", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "dest-1", destID)

	checkIns, err := store.ListActiveCheckIns(context.Background(), "dest-1")
	require.NoError(t, err)
	assert.Len(t, checkIns, 1)

	owned, err := store.GetGroupByID(context.Background(), "owned")
	require.NoError(t, err)
	assert.Equal(t, "dest-1", owned.CreatedBy)

	membership, err := store.GetMembership(context.Background(), "owned", "dest-1")
	require.NoError(t, err)
	assert.True(t, membership.IsActive)

	// The shared group keeps a single membership for the destination.
	_, err = store.GetMembership(context.Background(), "shared", "anon-1")
	assert.Error(t, err)
	count, err := store.CountActiveMembers(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrateMissingAnonymousUserIsNoOp(t *testing.T) {
	store := newMemStore()
	seedUserWithStats(t, store, "dest-1", "alice@example.com", models.Stats{TotalCheckIns: 4}, baseTime)
	svc := NewMigrationService(store)

	destID, err := svc.MigrateAnonymousUser(context.Background(), "anon-gone@device.local", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dest-1", destID)

	dest, err := store.GetUserByID(context.Background(), "dest-1")
	require.NoError(t, err)
	assert.Equal(t, 4, dest.TotalCheckIns, "nothing merged")
}

func TestImportLocalHistory(t *testing.T) {
	ctx := context.Background()
	device, err := local.New(":memory:")
	require.NoError(t, err)
	defer device.Close()

	store := newMemStore()
	seedUser(t, store, "user-1")

	// Server already has today's check-in; device has today and the two
	// days before it.
	require.NoError(t, store.CreateCheckIn(ctx, &models.CheckIn{
		ID: "server-today", UserID: "user-1", Timestamp: baseTime, CreatedAt: baseTime,
	}))
	for day := 0; day < 3; day++ {
		ts := baseTime.AddDate(0, 0, -day)
		require.NoError(t, device.CreateCheckIn(ctx, &models.LocalCheckIn{
			CheckIn: models.CheckIn{
				ID:        uuid.New().String(),
				UserID:    models.LocalUserID,
				Timestamp: ts,
				CreatedAt: ts,
			},
		}))
	}
	require.NoError(t, device.SaveStats(ctx, models.Stats{CurrentStreak: 3, BestStreak: 9, TotalCheckIns: 3}))

	svc := NewMigrationService(store)
	svc.now = func() time.Time { return baseTime }
	require.NoError(t, svc.ImportLocalHistory(ctx, "user-1", device))

	// Occupied day skipped, two replayed.
	checkIns, err := store.ListActiveCheckIns(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, checkIns, 3)

	user, err := store.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, user.CurrentStreak)
	assert.Equal(t, 9, user.BestStreak, "device best streak is the floor")
	assert.Equal(t, 3, user.TotalCheckIns)

	// Device is drained after a successful import.
	remaining, err := device.ListActiveCheckIns(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	stats, err := device.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCheckIns)
}

func TestImportLocalHistoryDropsGroupTags(t *testing.T) {
	ctx := context.Background()
	device, err := local.New(":memory:")
	require.NoError(t, err)
	defer device.Close()

	store := newMemStore()
	seedUser(t, store, "user-1")

	groupID := "phantom-group"
	require.NoError(t, device.CreateCheckIn(ctx, &models.LocalCheckIn{
		CheckIn: models.CheckIn{
			ID:        uuid.New().String(),
			UserID:    models.LocalUserID,
			GroupID:   &groupID,
			Timestamp: baseTime,
			CreatedAt: baseTime,
		},
	}))

	svc := NewMigrationService(store)
	svc.now = func() time.Time { return baseTime }
	require.NoError(t, svc.ImportLocalHistory(ctx, "user-1", device))

	checkIns, err := store.ListActiveCheckIns(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.Nil(t, checkIns[0].GroupID)
	assert.True(t, checkIns[0].Timestamp.Equal(baseTime))
}
