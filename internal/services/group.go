package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	inviteCodeLength = 6
	inviteCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxGroupMembers  = 4
)

// GroupService handles group creation, membership and archival. Group
// streak values are owned by the check-in lifecycle; this service only
// manages who participates.
type GroupService struct {
	store        repository.Store
	invitePrefix string
	now          func() time.Time
}

// NewGroupService creates a new group service. invitePrefix is the app name
// prepended to every invite code.
func NewGroupService(store repository.Store, invitePrefix string) *GroupService {
	return &GroupService{store: store, invitePrefix: invitePrefix, now: time.Now}
}

// Create creates a group with a unique invite code and joins the creator as
// its first active member.
func (s *GroupService) Create(ctx context.Context, userID, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("group name is required")
	}

	now := s.now()
	var group *models.Group
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		code, err := s.generateUniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		group = &models.Group{
			ID:         uuid.New().String(),
			Name:       name,
			InviteCode: code,
			CreatedBy:  userID,
			CreatedAt:  now,
		}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		return tx.AddMembership(ctx, &models.GroupMembership{
			GroupID:  group.ID,
			UserID:   userID,
			IsActive: true,
			JoinedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Join adds the user to the group behind an invite code. A previously
// deactivated membership is reactivated instead of duplicated. At most four
// members may be active at once.
func (s *GroupService) Join(ctx context.Context, userID, inviteCode string) (*models.Group, error) {
	now := s.now()
	var group *models.Group
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		group, err = tx.GetGroupByInviteCode(ctx, inviteCode)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.InvalidInviteCode(inviteCode)
			}
			return err
		}
		if group.IsArchived {
			return apperror.GroupArchived(group.ID)
		}

		count, err := tx.CountActiveMembers(ctx, group.ID)
		if err != nil {
			return err
		}

		membership, err := tx.GetMembership(ctx, group.ID, userID)
		switch {
		case err == nil && membership.IsActive:
			return apperror.AlreadyMember(group.ID)
		case err == nil:
			if count >= maxGroupMembers {
				return apperror.GroupFull(group.ID)
			}
			return tx.SetMembershipActive(ctx, group.ID, userID, true)
		case errors.Is(err, apperror.ErrNotFound):
			if count >= maxGroupMembers {
				return apperror.GroupFull(group.ID)
			}
			return tx.AddMembership(ctx, &models.GroupMembership{
				GroupID:  group.ID,
				UserID:   userID,
				IsActive: true,
				JoinedAt: now,
			})
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Leave deactivates the user's membership. The group streak is not touched
// here; the next recompute sees the reduced member set.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		membership, err := tx.GetMembership(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if !membership.IsActive {
			return nil
		}
		return tx.SetMembershipActive(ctx, groupID, userID, false)
	})
}

// Archive marks a group archived. Only the creator may archive; archiving
// twice is a no-op success.
func (s *GroupService) Archive(ctx context.Context, userID, groupID string) error {
	now := s.now()
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		group, err := tx.GetGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group.CreatedBy != userID {
			return apperror.Forbidden("only the group creator can archive it")
		}
		if group.IsArchived {
			return nil
		}
		return tx.ArchiveGroup(ctx, groupID, now)
	})
}

// Get retrieves a group by ID.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroupByID(ctx, groupID)
}

// ListForUser returns the non-archived groups the user is an active member of.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	memberships, err := s.store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(memberships))
	for _, m := range memberships {
		if !m.IsActive {
			continue
		}
		group, err := s.store.GetGroupByID(ctx, m.GroupID)
		if err != nil {
			return nil, err
		}
		if group.IsArchived {
			continue
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// ActiveMemberIDs returns the user ids of a group's active members.
func (s *GroupService) ActiveMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, err := s.store.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// generateUniqueInviteCode builds "<PREFIX>-" plus six random uppercase
// alphanumerics, regenerating on collision until unique.
func (s *GroupService) generateUniqueInviteCode(ctx context.Context, tx repository.Store) (string, error) {
	maxAttempts := 10
	for i := 0; i < maxAttempts; i++ {
		code := s.invitePrefix + "-" + randomCode(inviteCodeLength)
		exists, err := tx.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique invite code after %d attempts", maxAttempts)
}

func randomCode(length int) string {
	code := make([]byte, length)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeChars))))
		code[i] = inviteCodeChars[n.Int64()]
	}
	return string(code)
}
