package user

import (
	"context"
	"errors"
	"fmt"

	"chatsync/internal/common"
	"chatsync/internal/dbmysql"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	// EnsureUser returns the stored identity for id, creating it on first
	// sight. Calling it twice with the same id never produces two rows; the
	// second call returns the existing row unchanged.
	EnsureUser(ctx context.Context, id, email, fullName string) (*dbmysql.User, error)
	GetProfile(ctx context.Context, userID string) (*dbmysql.User, error)
	ListUsers(ctx context.Context, excludeUserID string) ([]*dbmysql.User, error)
}

type userService struct {
	userRepo UserRepository
}

func NewUserService(userRepo UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) EnsureUser(ctx context.Context, id, email, fullName string) (*dbmysql.User, error) {
	if id == "" {
		id = uuid.NewString()
	}

	existing, err := s.userRepo.GetUserByID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if email == "" {
		email = fmt.Sprintf("user-%s@example.com", id)
	}
	if err := common.ValidateEmail(email); err != nil {
		return nil, err
	}
	if fullName == "" {
		fullName = fmt.Sprintf("User %s", shortID(id))
	}

	user := &dbmysql.User{
		ID:       id,
		Email:    email,
		FullName: fullName,
		Status:   "active",
	}

	if createErr := s.userRepo.CreateUser(ctx, user); createErr != nil {
		// Two concurrent ensures can race on the insert; the row that won is
		// the answer either way.
		if existing, err := s.userRepo.GetUserByID(ctx, id); err == nil {
			return existing, nil
		}
		return nil, createErr
	}

	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*dbmysql.User, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context, excludeUserID string) ([]*dbmysql.User, error) {
	return s.userRepo.ListUsers(ctx, excludeUserID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
