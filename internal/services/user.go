package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/repos"
	"github.com/poppacare/poppa-backend/internal/types"
)

type UserService interface {
	Create(ctx context.Context, input types.User) (*types.User, error)
	Get(ctx context.Context, userID string) (*types.User, error)
	GetByPhone(ctx context.Context, phone string) (*types.User, error)
	Update(ctx context.Context, userID string, update types.UserUpdate) (*types.User, error)
	Delete(ctx context.Context, userID string) error
	Metadata(ctx context.Context, phone string) (*types.UserMetadata, error)
	Elders(ctx context.Context, caretakerID string) ([]types.RelatedUser, error)
	LinkCaretaker(ctx context.Context, caretakerID, elderID string) error
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (s *userService) Create(ctx context.Context, input types.User) (*types.User, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, fmt.Errorf("first name required")
	}
	switch input.Role {
	case "", types.RoleElder, types.RoleCaretaker:
	default:
		return nil, fmt.Errorf("invalid role %q", input.Role)
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.Phone != "" {
		existing, err := s.userRepo.GetByPhone(ctx, input.Phone)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != input.ID {
			return nil, fmt.Errorf("phone already registered")
		}
	}
	user, err := s.userRepo.Create(ctx, &input)
	if err != nil {
		return nil, err
	}
	s.log.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Get(ctx context.Context, userID string) (*types.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) GetByPhone(ctx context.Context, phone string) (*types.User, error) {
	return s.userRepo.GetByPhone(ctx, phone)
}

func (s *userService) Update(ctx context.Context, userID string, update types.UserUpdate) (*types.User, error) {
	if update.Role != nil {
		switch *update.Role {
		case types.RoleElder, types.RoleCaretaker:
		default:
			return nil, fmt.Errorf("invalid role %q", *update.Role)
		}
	}
	if update.Phone != nil && *update.Phone != "" {
		existing, err := s.userRepo.GetByPhone(ctx, *update.Phone)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != userID {
			return nil, fmt.Errorf("phone already registered")
		}
	}
	return s.userRepo.Update(ctx, userID, update)
}

func (s *userService) Delete(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info("User deleted", "user_id", userID)
	return nil
}

func (s *userService) Metadata(ctx context.Context, phone string) (*types.UserMetadata, error) {
	return s.userRepo.GetMetadataByPhone(ctx, phone)
}

func (s *userService) Elders(ctx context.Context, caretakerID string) ([]types.RelatedUser, error) {
	return s.userRepo.GetCaretakerElders(ctx, caretakerID)
}

func (s *userService) LinkCaretaker(ctx context.Context, caretakerID, elderID string) error {
	if caretakerID == elderID {
		return fmt.Errorf("caretaker and elder must differ")
	}
	return s.userRepo.CreateCaresFor(ctx, caretakerID, elderID)
}
