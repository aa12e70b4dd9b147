package handlers

import (
	"encoding/json"
	"net/http"

	"fitsquad-backend/internal/middleware"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user and authentication HTTP requests
type UserHandler struct {
	userService      *services.UserService
	checkInService   *services.CheckInService
	migrationService *services.MigrationService
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userService *services.UserService,
	checkInService *services.CheckInService,
	migrationService *services.MigrationService,
) *UserHandler {
	return &UserHandler{
		userService:      userService,
		checkInService:   checkInService,
		migrationService: migrationService,
	}
}

// AuthResponse carries a user together with its token
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// CreateAnonymous handles POST /api/v1/users/anonymous
func (h *UserHandler) CreateAnonymous(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, token, err := h.userService.CreateAnonymousUser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create anonymous user")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("Anonymous user created")

	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// SignInRequest represents the request body for signing in
type SignInRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	AnonymousEmail string `json:"anonymous_email,omitempty"`
}

// SignIn handles POST /api/v1/auth/signin. When the client carries an
// anonymous identity, its history is merged into the signed-in account
// first; a migration failure is logged but does not block the sign-in.
func (h *UserHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.AnonymousEmail != "" {
		if _, err := h.migrationService.MigrateAnonymousUser(ctx, req.AnonymousEmail, req.Email); err != nil {
			log.Error().
				Err(err).
				Str("email", req.Email).
				Msg("Failed to migrate anonymous user")
		}
	}

	user, token, err := h.userService.SignIn(ctx, req.Email, req.Name)
	if err != nil {
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to sign in")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")

	respondJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// UpdatePushTokenRequest represents the request body for push token updates
type UpdatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /api/v1/users/me/stats
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	stats, err := h.checkInService.GetUserStats(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get stats")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
