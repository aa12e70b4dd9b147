package handlers

import (
	"encoding/json"
	"net/http"

	"fitsquad-backend/internal/middleware"
	"fitsquad-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CheckInHandler handles check-in HTTP requests
type CheckInHandler struct {
	checkInService *services.CheckInService
	groupService   *services.GroupService
	userService    *services.UserService
	hub            *services.Hub
	pushService    *services.PushService
}

// NewCheckInHandler creates a new check-in handler. pushService may be nil
// when push notifications are disabled.
func NewCheckInHandler(
	checkInService *services.CheckInService,
	groupService *services.GroupService,
	userService *services.UserService,
	hub *services.Hub,
	pushService *services.PushService,
) *CheckInHandler {
	return &CheckInHandler{
		checkInService: checkInService,
		groupService:   groupService,
		userService:    userService,
		hub:            hub,
		pushService:    pushService,
	}
}

// CreateCheckInRequest represents the request body for creating a check-in
type CreateCheckInRequest struct {
	GroupID *string `json:"group_id,omitempty"`
	Photo   *string `json:"photo,omitempty"`
	Note    *string `json:"note,omitempty"`
}

// Create handles POST /api/v1/checkins
func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.checkInService.Create(ctx, services.CreateCheckInRequest{
		UserID:  userID,
		GroupID: req.GroupID,
		Photo:   req.Photo,
		Note:    req.Note,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create check-in")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("check_in_id", result.CheckIn.ID).
		Msg("Check-in created")

	if req.GroupID != nil {
		h.notifyGroup(r, userID, *req.GroupID, result)
	}

	respondJSON(w, http.StatusOK, result.CheckIn)
}

// notifyGroup fans the check-in out to the other group members: a
// WebSocket event always, plus a push notification when this check-in
// completed the day's full attendance. Both are best effort.
func (h *CheckInHandler) notifyGroup(r *http.Request, userID, groupID string, result *services.CreateResult) {
	ctx := r.Context()

	memberIDs, err := h.groupService.ActiveMemberIDs(ctx, groupID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to list group members")
		return
	}

	others := make([]string, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != userID {
			others = append(others, id)
		}
	}

	h.hub.Broadcast(others, services.Event{
		Type:        "check_in_created",
		GroupID:     groupID,
		UserID:      userID,
		CheckInID:   result.CheckIn.ID,
		GroupStreak: result.GroupStreak,
	})

	if result.GroupStreak == nil || h.pushService == nil {
		return
	}

	group, err := h.groupService.Get(ctx, groupID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to load group for push")
		return
	}

	var tokens []string
	for _, id := range memberIDs {
		member, err := h.userService.GetUser(ctx, id)
		if err != nil || member.PushToken == nil {
			continue
		}
		tokens = append(tokens, *member.PushToken)
	}
	if len(tokens) > 0 {
		h.pushService.NotifyGroupStreak(tokens, group.Name, *result.GroupStreak)
	}
}

// UpdateCheckInRequest represents the request body for updating a check-in
type UpdateCheckInRequest struct {
	Photo *string `json:"photo,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// Update handles PATCH /api/v1/checkins/{check_in_id}
func (h *CheckInHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	checkInID := chi.URLParam(r, "check_in_id")

	var req UpdateCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.authorizeOwner(w, r, userID, checkInID) {
		return
	}

	if err := h.checkInService.Update(ctx, checkInID, req.Photo, req.Note); err != nil {
		log.Error().Err(err).Str("check_in_id", checkInID).Msg("Failed to update check-in")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Archive handles DELETE /api/v1/checkins/{check_in_id}
func (h *CheckInHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	checkInID := chi.URLParam(r, "check_in_id")

	checkIn, err := h.checkInService.GetCheckIn(ctx, checkInID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if checkIn.UserID != userID {
		respondError(w, "check-in belongs to another user", http.StatusForbidden)
		return
	}

	if err := h.checkInService.Archive(ctx, checkInID); err != nil {
		log.Error().Err(err).Str("check_in_id", checkInID).Msg("Failed to archive check-in")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("check_in_id", checkInID).
		Msg("Check-in archived")

	if checkIn.GroupID != nil {
		memberIDs, err := h.groupService.ActiveMemberIDs(ctx, *checkIn.GroupID)
		if err != nil {
			log.Error().Err(err).Str("group_id", *checkIn.GroupID).Msg("Failed to list group members")
		} else {
			others := make([]string, 0, len(memberIDs))
			for _, id := range memberIDs {
				if id != userID {
					others = append(others, id)
				}
			}
			h.hub.Broadcast(others, services.Event{
				Type:      "check_in_archived",
				GroupID:   *checkIn.GroupID,
				UserID:    userID,
				CheckInID: checkInID,
			})
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/checkins
func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	checkIns, err := h.checkInService.ListUserCheckIns(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list check-ins")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"check_ins": checkIns,
		"total":     len(checkIns),
	})
}

// authorizeOwner verifies the check-in belongs to the requester.
func (h *CheckInHandler) authorizeOwner(w http.ResponseWriter, r *http.Request, userID, checkInID string) bool {
	checkIn, err := h.checkInService.GetCheckIn(r.Context(), checkInID)
	if err != nil {
		respondServiceError(w, err)
		return false
	}
	if checkIn.UserID != userID {
		respondError(w, "check-in belongs to another user", http.StatusForbidden)
		return false
	}
	return true
}
