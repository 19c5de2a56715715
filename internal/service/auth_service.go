package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"
	"lane-inventory/pkg/jwt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error)
}

type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresIn int64              `json:"expires_in"`
	User      model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, ttl time.Duration) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// A new version invalidates tokens issued to earlier sessions.
	version := uuid.New().String()
	now := s.now().UTC()
	if err := s.userRepo.StartSession(ctx, user.ID, version, now); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	user.TokenVersion = version
	user.LastLoginAt = &now

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name, string(user.Role), version)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.ttl.Seconds()),
		User:      user.ToResponse(),
	}, nil
}

// Authenticate resolves a bearer token to its active user.
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, jwt.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return translate(err, "User", userID)
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: new password must be at least 6 characters", ErrInvalidOperation)
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, userID, user.Password)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "User", userID)
	}
	resp := user.ToResponse()
	return &resp, nil
}
