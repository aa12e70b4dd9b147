package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// AppError is a typed application error. Handlers map the wrapped sentinel
// to an HTTP status via errors.Is; the Message is safe to show to clients.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
	}
}

// AlreadyCheckedInToday signals a second active check-in on the same local
// day. Callers must not resubmit without archiving today's check-in first.
func AlreadyCheckedInToday(userID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("user %s already checked in today", userID),
	}
}

// AlreadyArchived signals an edit attempt on an archived check-in.
// Double-archive is not an error; this is only returned from update paths.
func AlreadyArchived(checkInID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("check-in %s is archived", checkInID),
	}
}

func GroupFull(groupID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("group %s already has the maximum number of members", groupID),
	}
}

func GroupArchived(groupID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("group %s is archived", groupID),
	}
}

func AlreadyMember(groupID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("user is already an active member of group %s", groupID),
	}
}

func InvalidInviteCode(code string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("invalid invite code %q", code),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
