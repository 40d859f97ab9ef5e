package dto

import (
	"time"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// QuestionInput is one authored question in a create or edit payload.
type QuestionInput struct {
	Text    string   `json:"text" validate:"max=500"`
	Type    string   `json:"type" validate:"required"`
	Options []string `json:"options" validate:"omitempty,dive,max=200"`
}

// SurveyContentRequest carries the full authored content of a survey.
type SurveyContentRequest struct {
	Title     string          `json:"title" validate:"required,max=200"`
	IsActive  *bool           `json:"is_active"`
	Questions []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// OptionResponse is the serialized representation of an option.
type OptionResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// QuestionResponse is the serialized representation of a question.
type QuestionResponse struct {
	ID       uint             `json:"id"`
	Text     string           `json:"text"`
	Type     string           `json:"type"`
	Position int              `json:"position"`
	Options  []OptionResponse `json:"options"`
}

// SurveyResponse is the serialized representation of a survey.
type SurveyResponse struct {
	ID        uint               `json:"id"`
	Title     string             `json:"title"`
	TeacherID uint               `json:"teacher_id"`
	IsActive  bool               `json:"is_active"`
	Code      string             `json:"code"`
	RootID    *uint              `json:"root_id,omitempty"`
	Version   int                `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	Questions []QuestionResponse `json:"questions,omitempty"`
}

// SurveySummary is a survey listed on a dashboard.
type SurveySummary struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	IsActive        bool      `json:"is_active"`
	Code            string    `json:"code"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	SubmissionCount int64     `json:"submission_count"`
}

// SurveyEditResponse reports the outcome of an edit.
type SurveyEditResponse struct {
	Versioned bool           `json:"versioned"`
	Survey    SurveyResponse `json:"survey"`
}

// NewSurveyResponse converts a survey model, including loaded questions, into a DTO.
func NewSurveyResponse(survey models.Survey) SurveyResponse {
	questions := make([]QuestionResponse, 0, len(survey.Questions))
	for _, question := range survey.Questions {
		options := make([]OptionResponse, 0, len(question.Options))
		for _, option := range question.Options {
			options = append(options, OptionResponse{ID: option.ID, Text: option.Text, Position: option.Position})
		}
		questions = append(questions, QuestionResponse{
			ID:       question.ID,
			Text:     question.Text,
			Type:     question.Type,
			Position: question.Position,
			Options:  options,
		})
	}

	return SurveyResponse{
		ID:        survey.ID,
		Title:     survey.Title,
		TeacherID: survey.TeacherID,
		IsActive:  survey.IsActive,
		Code:      survey.Code,
		RootID:    survey.RootID,
		Version:   survey.Version,
		CreatedAt: survey.CreatedAt,
		Questions: questions,
	}
}

// NewSurveySummary converts a survey model into a dashboard entry.
func NewSurveySummary(survey models.Survey, submissions int64) SurveySummary {
	return SurveySummary{
		ID:              survey.ID,
		Title:           survey.Title,
		IsActive:        survey.IsActive,
		Code:            survey.Code,
		Version:         survey.Version,
		CreatedAt:       survey.CreatedAt,
		SubmissionCount: submissions,
	}
}

// LinkCodeResponse carries the access link of a survey and its encoded image.
type LinkCodeResponse struct {
	Code        string `json:"code"`
	URL         string `json:"url"`
	ImageBase64 string `json:"image_base64"`
	Image       []byte `json:"-"`
}
