package service

import (
	"context"
	"errors"
	"fmt"

	"lane-inventory/internal/model"
	"lane-inventory/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEmailExists = fmt.Errorf("%w: email already exists", ErrConflict)

type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput, actor Actor) (*model.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput, actor Actor) (*model.UserResponse, error)
	GetUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserInput struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"required,max=255"`
	Role     model.Role `json:"role" validate:"required,oneof=ADMIN STAFF"`
}

type UpdateUserInput struct {
	Name     *string     `json:"name" validate:"omitempty,min=1,max=255"`
	Password *string     `json:"password" validate:"omitempty,min=6"`
	Role     *model.Role `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
	IsActive *bool       `json:"is_active"`
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, in CreateUserInput, actor Actor) (*model.UserResponse, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		Email:    in.Email,
		Name:     in.Name,
		Role:     in.Role,
		IsActive: true,
	}
	user.CreatedBy = actor.AuditID()
	user.UpdatedBy = actor.AuditID()
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, translate(err, "User", user.ID)
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput, actor Actor) (*model.UserResponse, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User", id)
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		if !*in.IsActive && id == actor.ID {
			return nil, fmt.Errorf("%w: you cannot deactivate your own account", ErrInvalidOperation)
		}
		user.IsActive = *in.IsActive
	}
	user.UpdatedBy = actor.AuditID()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, translate(err, "User", id)
	}
	if in.Password != nil {
		if err := user.SetPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.userRepo.UpdatePassword(ctx, id, user.Password); err != nil {
			return nil, err
		}
	}

	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) GetUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "User", id)
	}
	resp := user.ToResponse()
	return &resp, nil
}
