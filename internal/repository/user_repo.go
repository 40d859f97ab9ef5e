package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	StudentNumberTaken(ctx context.Context, number string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.exists(ctx, "username = ?", strings.TrimSpace(username), excludeID)
}

func (r *userRepository) StudentNumberTaken(ctx context.Context, number string, excludeID uint) (bool, error) {
	return r.exists(ctx, "student_number = ?", strings.TrimSpace(number), excludeID)
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) exists(ctx context.Context, clause string, value string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where(clause, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
