package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fitsquad-backend/internal/apperror"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// respondServiceError maps a service error to an HTTP status via the
// error's category sentinel.
func respondServiceError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
		switch {
		case errors.Is(err, apperror.ErrValidation):
			statusCode = http.StatusBadRequest
		case errors.Is(err, apperror.ErrNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, apperror.ErrForbidden):
			statusCode = http.StatusForbidden
		case errors.Is(err, apperror.ErrConflict):
			statusCode = http.StatusConflict
		}
	}

	respondError(w, message, statusCode)
}
