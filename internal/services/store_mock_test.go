package services

import (
	"context"
	"sort"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository"
	"fitsquad-backend/internal/streak"
)

// memStore is an in-memory repository.Store used to test the services
// without a database. Tests are single-threaded, so WithinTx simply runs
// fn against the same store.
type memStore struct {
	users       map[string]*models.User
	groups      map[string]*models.Group
	memberships map[string]*models.GroupMembership
	checkIns    map[string]*models.CheckIn
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*models.User),
		groups:      make(map[string]*models.Group),
		memberships: make(map[string]*models.GroupMembership),
		checkIns:    make(map[string]*models.CheckIn),
	}
}

func membershipKey(groupID, userID string) string {
	return groupID + "/" + userID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return fn(m)
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *memStore) UpdateUserStats(_ context.Context, userID string, stats models.Stats) error {
	user, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	user.CurrentStreak = stats.CurrentStreak
	user.BestStreak = stats.BestStreak
	user.TotalCheckIns = stats.TotalCheckIns
	user.LastCheckIn = stats.LastCheckIn
	return nil
}

func (m *memStore) UpdateUserPushToken(_ context.Context, userID string, pushToken *string) error {
	user, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	user.PushToken = pushToken
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, userID string) error {
	delete(m.users, userID)
	return nil
}

func (m *memStore) CreateGroup(_ context.Context, group *models.Group) error {
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

func (m *memStore) GetGroupByID(_ context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, apperror.NotFound("group", id)
	}
	result := *group
	return &result, nil
}

func (m *memStore) GetGroupByInviteCode(_ context.Context, code string) (*models.Group, error) {
	for _, group := range m.groups {
		if group.InviteCode == code {
			result := *group
			return &result, nil
		}
	}
	return nil, apperror.NotFound("group", code)
}

func (m *memStore) InviteCodeExists(_ context.Context, code string) (bool, error) {
	for _, group := range m.groups {
		if group.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateGroupStreak(_ context.Context, groupID string, streakValue int) error {
	group, ok := m.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	group.GroupStreak = streakValue
	return nil
}

func (m *memStore) ArchiveGroup(_ context.Context, groupID string, archivedAt time.Time) error {
	group, ok := m.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	group.IsArchived = true
	group.ArchivedAt = &archivedAt
	return nil
}

func (m *memStore) ReassignGroupCreator(_ context.Context, fromUserID, toUserID string) error {
	for _, group := range m.groups {
		if group.CreatedBy == fromUserID {
			group.CreatedBy = toUserID
		}
	}
	return nil
}

func (m *memStore) AddMembership(_ context.Context, membership *models.GroupMembership) error {
	stored := *membership
	m.memberships[membershipKey(membership.GroupID, membership.UserID)] = &stored
	return nil
}

func (m *memStore) GetMembership(_ context.Context, groupID, userID string) (*models.GroupMembership, error) {
	membership, ok := m.memberships[membershipKey(groupID, userID)]
	if !ok {
		return nil, apperror.NotFound("membership", membershipKey(groupID, userID))
	}
	result := *membership
	return &result, nil
}

func (m *memStore) ListActiveMembers(_ context.Context, groupID string) ([]models.GroupMembership, error) {
	var members []models.GroupMembership
	for _, membership := range m.memberships {
		if membership.GroupID == groupID && membership.IsActive {
			members = append(members, *membership)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (m *memStore) CountActiveMembers(ctx context.Context, groupID string) (int, error) {
	members, err := m.ListActiveMembers(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (m *memStore) ListMembershipsByUser(_ context.Context, userID string) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	for _, membership := range m.memberships {
		if membership.UserID == userID {
			memberships = append(memberships, *membership)
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].JoinedAt.Before(memberships[j].JoinedAt)
	})
	return memberships, nil
}

func (m *memStore) SetMembershipActive(_ context.Context, groupID, userID string, active bool) error {
	membership, ok := m.memberships[membershipKey(groupID, userID)]
	if !ok {
		return apperror.NotFound("membership", membershipKey(groupID, userID))
	}
	membership.IsActive = active
	return nil
}

func (m *memStore) ReassignMembership(_ context.Context, groupID, fromUserID, toUserID string) error {
	key := membershipKey(groupID, fromUserID)
	membership, ok := m.memberships[key]
	if !ok {
		return nil
	}
	delete(m.memberships, key)
	membership.UserID = toUserID
	m.memberships[membershipKey(groupID, toUserID)] = membership
	return nil
}

func (m *memStore) DeleteMembership(_ context.Context, groupID, userID string) error {
	delete(m.memberships, membershipKey(groupID, userID))
	return nil
}

func (m *memStore) CreateCheckIn(_ context.Context, checkIn *models.CheckIn) error {
	stored := *checkIn
	m.checkIns[checkIn.ID] = &stored
	return nil
}

func (m *memStore) GetCheckIn(_ context.Context, id string) (*models.CheckIn, error) {
	checkIn, ok := m.checkIns[id]
	if !ok {
		return nil, apperror.NotFound("check-in", id)
	}
	result := *checkIn
	return &result, nil
}

func (m *memStore) GetActiveCheckInForDay(_ context.Context, userID string, dayKey int64) (*models.CheckIn, error) {
	for _, checkIn := range m.checkIns {
		if checkIn.UserID == userID && !checkIn.IsArchived && streak.DayKey(checkIn.Timestamp) == dayKey {
			result := *checkIn
			return &result, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListActiveCheckIns(_ context.Context, userID string) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	for _, checkIn := range m.checkIns {
		if checkIn.UserID == userID && !checkIn.IsArchived {
			checkIns = append(checkIns, *checkIn)
		}
	}
	sort.Slice(checkIns, func(i, j int) bool { return checkIns[i].Timestamp.After(checkIns[j].Timestamp) })
	return checkIns, nil
}

func (m *memStore) ListActiveGroupCheckIns(_ context.Context, groupID string) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	for _, checkIn := range m.checkIns {
		if checkIn.GroupID != nil && *checkIn.GroupID == groupID && !checkIn.IsArchived {
			checkIns = append(checkIns, *checkIn)
		}
	}
	sort.Slice(checkIns, func(i, j int) bool { return checkIns[i].Timestamp.After(checkIns[j].Timestamp) })
	return checkIns, nil
}

func (m *memStore) UpdateCheckInContent(_ context.Context, id string, photo, note *string) error {
	checkIn, ok := m.checkIns[id]
	if !ok {
		return apperror.NotFound("check-in", id)
	}
	checkIn.Photo = photo
	checkIn.Note = note
	return nil
}

func (m *memStore) ArchiveCheckIn(_ context.Context, id string, archivedAt time.Time) error {
	checkIn, ok := m.checkIns[id]
	if !ok {
		return apperror.NotFound("check-in", id)
	}
	checkIn.IsArchived = true
	checkIn.ArchivedAt = &archivedAt
	return nil
}

func (m *memStore) ReassignCheckIns(_ context.Context, fromUserID, toUserID string) error {
	for _, checkIn := range m.checkIns {
		if checkIn.UserID == fromUserID {
			checkIn.UserID = toUserID
		}
	}
	return nil
}
