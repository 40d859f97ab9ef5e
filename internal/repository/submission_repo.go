package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	SurveyID    *uint
	StudentID   *uint
	WithAnswers bool
	OldestFirst bool
}

// SubmissionRepository defines data operations for submissions and their answers.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission, answers []models.Answer) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	ListAnswersBySurvey(ctx context.Context, surveyID uint) ([]models.Answer, error)
	CountBySurvey(ctx context.Context, surveyID uint) (int64, error)
	CountBySurveys(ctx context.Context, surveyIDs []uint) (map[uint]int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// Create writes the parent submission and all of its answers atomically.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission, answers []models.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return err
		}
		if len(answers) == 0 {
			return nil
		}

		for i := range answers {
			answers[i].SubmissionID = submission.ID
			answers[i].SurveyID = submission.SurveyID
			answers[i].StudentID = submission.StudentID
		}
		if err := tx.Omit(clause.Associations).Create(&answers).Error; err != nil {
			return err
		}

		submission.Answers = answers
		return nil
	})
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Survey").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Student").
		Preload("Survey")

	if filter.WithAnswers {
		query = query.Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}

	if filter.SurveyID != nil {
		query = query.Where("survey_id = ?", *filter.SurveyID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	order := "submitted_at DESC, id DESC"
	if filter.OldestFirst {
		order = "submitted_at ASC, id ASC"
	}

	var submissions []models.Submission
	if err := query.Order(order).Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListAnswersBySurvey(ctx context.Context, surveyID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("survey_id = ?", surveyID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *submissionRepository) CountBySurvey(ctx context.Context, surveyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("survey_id = ?", surveyID).
		Count(&count).Error
	return count, err
}

func (r *submissionRepository) CountBySurveys(ctx context.Context, surveyIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(surveyIDs))
	if len(surveyIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		SurveyID uint
		Total    int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("survey_id, COUNT(*) AS total").
		Where("survey_id IN ?", surveyIDs).
		Group("survey_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.SurveyID] = row.Total
	}
	return counts, nil
}
