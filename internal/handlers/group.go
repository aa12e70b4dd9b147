package handlers

import (
	"encoding/json"
	"net/http"

	"fitsquad-backend/internal/middleware"
	"fitsquad-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// GroupHandler handles group HTTP requests
type GroupHandler struct {
	groupService *services.GroupService
	hub          *services.Hub
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *services.GroupService, hub *services.Hub) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		hub:          hub,
	}
}

// CreateGroupRequest represents the request body for creating a group
type CreateGroupRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/v1/groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.Create(ctx, userID, req.Name)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create group")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", group.ID).
		Str("invite_code", group.InviteCode).
		Msg("Group created")

	respondJSON(w, http.StatusOK, group)
}

// JoinGroupRequest represents the request body for joining a group
type JoinGroupRequest struct {
	InviteCode string `json:"invite_code"`
}

// Join handles POST /api/v1/groups/join
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InviteCode == "" {
		respondError(w, "invite_code is required", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.Join(ctx, userID, req.InviteCode)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("invite_code", req.InviteCode).
			Msg("Failed to join group")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", group.ID).
		Msg("User joined group")

	h.broadcastToOthers(r, userID, group.ID, services.Event{
		Type:    "member_joined",
		GroupID: group.ID,
		UserID:  userID,
	})

	respondJSON(w, http.StatusOK, group)
}

// List handles GET /api/v1/groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	groups, err := h.groupService.ListForUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list groups")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"total":  len(groups),
	})
}

// Leave handles POST /api/v1/groups/{group_id}/leave
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	if err := h.groupService.Leave(ctx, userID, groupID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to leave group")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("User left group")

	h.broadcastToOthers(r, userID, groupID, services.Event{
		Type:    "member_left",
		GroupID: groupID,
		UserID:  userID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Archive handles DELETE /api/v1/groups/{group_id}
func (h *GroupHandler) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	groupID := chi.URLParam(r, "group_id")

	// Snapshot the member list before archival for the fan-out below.
	memberIDs, err := h.groupService.ActiveMemberIDs(ctx, groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.groupService.Archive(ctx, userID, groupID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("group_id", groupID).
			Msg("Failed to archive group")
		respondServiceError(w, err)
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("group_id", groupID).
		Msg("Group archived")

	h.hub.Broadcast(memberIDs, services.Event{
		Type:    "group_archived",
		GroupID: groupID,
		UserID:  userID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// broadcastToOthers sends an event to every active member except the actor.
func (h *GroupHandler) broadcastToOthers(r *http.Request, userID, groupID string, event services.Event) {
	memberIDs, err := h.groupService.ActiveMemberIDs(r.Context(), groupID)
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
	h.hub.Broadcast(others, event)
}
