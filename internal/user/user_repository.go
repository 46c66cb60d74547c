package user

import (
	"context"

	"chatsync/internal/dbmysql"

	"gorm.io/gorm"
)

// UserRepository covers the identity CRUD the session provider and the
// creation flow need.
type UserRepository interface {
	CreateUser(ctx context.Context, user *dbmysql.User) error
	GetUserByID(ctx context.Context, userID string) (*dbmysql.User, error)
	GetUserByEmail(ctx context.Context, email string) (*dbmysql.User, error)
	ListUsers(ctx context.Context, excludeUserID string) ([]*dbmysql.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *dbmysql.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListUsers(ctx context.Context, excludeUserID string) ([]*dbmysql.User, error) {
	var users []*dbmysql.User
	query := r.db.WithContext(ctx).Order("full_name ASC")
	if excludeUserID != "" {
		query = query.Where("id <> ?", excludeUserID)
	}
	err := query.Find(&users).Error
	return users, err
}
