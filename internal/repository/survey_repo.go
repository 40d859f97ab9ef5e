package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// SurveyRepository persists surveys together with their questions and options.
type SurveyRepository interface {
	Create(ctx context.Context, survey *models.Survey) error
	CreateVersion(ctx context.Context, survey *models.Survey, titleFor func(version int) string) error
	GetByID(ctx context.Context, id uint) (models.Survey, error)
	GetWithQuestions(ctx context.Context, id uint) (models.Survey, error)
	GetByCode(ctx context.Context, code string) (models.Survey, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Survey, error)
	ListActive(ctx context.Context) ([]models.Survey, error)
	UpdateActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
}

type surveyRepository struct {
	db *gorm.DB
}

// NewSurveyRepository constructs a GORM-backed survey repository.
func NewSurveyRepository(db *gorm.DB) SurveyRepository {
	return &surveyRepository{db: db}
}

func (r *surveyRepository) Create(ctx context.Context, survey *models.Survey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Teacher").Create(survey).Error
	})
}

// CreateVersion inserts survey as the next version of its lineage. The version
// number is read and assigned inside the same transaction as the insert.
func (r *surveyRepository) CreateVersion(ctx context.Context, survey *models.Survey, titleFor func(version int) string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if survey.RootID == nil {
			return gorm.ErrInvalidData
		}

		var current int
		if err := tx.Model(&models.Survey{}).
			Select("COALESCE(MAX(version), 0)").
			Where("id = ? OR root_id = ?", *survey.RootID, *survey.RootID).
			Scan(&current).Error; err != nil {
			return err
		}

		survey.Version = current + 1
		if titleFor != nil {
			survey.Title = titleFor(survey.Version)
		}

		return tx.Omit("Teacher").Create(survey).Error
	})
}

func (r *surveyRepository) GetByID(ctx context.Context, id uint) (models.Survey, error) {
	var survey models.Survey
	if err := r.db.WithContext(ctx).First(&survey, id).Error; err != nil {
		return models.Survey{}, err
	}
	return survey, nil
}

func (r *surveyRepository) GetWithQuestions(ctx context.Context, id uint) (models.Survey, error) {
	var survey models.Survey
	if err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&survey, id).Error; err != nil {
		return models.Survey{}, err
	}
	return survey, nil
}

func (r *surveyRepository) GetByCode(ctx context.Context, code string) (models.Survey, error) {
	var survey models.Survey
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&survey).Error; err != nil {
		return models.Survey{}, err
	}
	return survey, nil
}

func (r *surveyRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Survey{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *surveyRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Survey, error) {
	var surveys []models.Survey
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC, id DESC").
		Find(&surveys).Error; err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *surveyRepository) ListActive(ctx context.Context) ([]models.Survey, error) {
	var surveys []models.Survey
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Find(&surveys).Error; err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *surveyRepository) UpdateActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Survey{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a survey and every dependent row, children first.
func (r *surveyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("survey_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}

		questionIDs := tx.Model(&models.Question{}).Select("id").Where("survey_id = ?", id)
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		if err := tx.Where("survey_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Survey{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
