package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitsquad-backend/internal/apperror"
	"fitsquad-backend/internal/models"
	"fitsquad-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtExpDays = 365

// UserService handles identities and tokens. Anonymous identities get a
// generated device-scoped email so the same unique-email storage path
// serves both modes.
type UserService struct {
	store     repository.Store
	jwtSecret string
	now       func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(store repository.Store, jwtSecret string) *UserService {
	return &UserService{store: store, jwtSecret: jwtSecret, now: time.Now}
}

// CreateAnonymousUser creates a local-only identity with a generated email
// and returns it together with a signed token.
func (s *UserService) CreateAnonymousUser(ctx context.Context) (*models.User, string, error) {
	user := &models.User{
		ID:        uuid.New().String(),
		Name:      "Anonymous",
		Email:     fmt.Sprintf("anon-%s@device.local", uuid.New().String()),
		CreatedAt: s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn finds or creates the account for an email and returns it with a
// fresh token.
func (s *UserService) SignIn(ctx context.Context, email, name string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", apperror.ValidationFailed("email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		user = &models.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			CreatedAt: s.now(),
		}
		if user.Name == "" {
			user.Name = email
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return nil, "", err
		}
	} else if err != nil {
		return nil, "", err
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// UpdatePushToken stores the device push token for a user.
func (s *UserService) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	return s.store.UpdateUserPushToken(ctx, userID, pushToken)
}

// GenerateJWT generates a signed token for a user.
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     s.now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a token and returns the user ID it carries.
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	return userID, nil
}
