package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// FeedbackFilter narrows feedback listings.
type FeedbackFilter struct {
	StudentID *uint
	Status    string
}

// FeedbackRepository persists feedback messages and their replies.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	GetByID(ctx context.Context, id uint) (models.Feedback, error)
	List(ctx context.Context, filter FeedbackFilter) ([]models.Feedback, error)
	MarkRead(ctx context.Context, id uint) error
	CreateReply(ctx context.Context, reply *models.FeedbackReply) error
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository constructs a GORM-backed repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	return r.db.WithContext(ctx).Omit("Student", "Replies").Create(feedback).Error
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uint) (models.Feedback, error) {
	var feedback models.Feedback
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&feedback, id).Error; err != nil {
		return models.Feedback{}, err
	}
	return feedback, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]models.Feedback, error) {
	query := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var items []models.Feedback
	if err := query.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *feedbackRepository) MarkRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("id = ?", id).
		Update("status", models.FeedbackStatusRead)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateReply appends a reply and flips the parent feedback to read in one transaction.
func (r *feedbackRepository) CreateReply(ctx context.Context, reply *models.FeedbackReply) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Feedback{}).
			Where("id = ?", reply.FeedbackID).
			Update("status", models.FeedbackStatusRead)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Create(reply).Error
	})
}
