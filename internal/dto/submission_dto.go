package dto

import (
	"time"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// AnswerInput is the submitted value for one question. Which field is read
// depends on the question type.
type AnswerInput struct {
	OptionID  *uint  `json:"option_id"`
	OptionIDs []uint `json:"option_ids"`
	Text      string `json:"text"`
}

// SubmissionCreateRequest maps question ids to submitted values.
type SubmissionCreateRequest struct {
	Answers map[uint]AnswerInput `json:"answers"`
}

// AnswerResponse is one recorded answer.
type AnswerResponse struct {
	QuestionID uint    `json:"question_id"`
	OptionID   *uint   `json:"option_id,omitempty"`
	TextAnswer *string `json:"text_answer,omitempty"`
}

// SubmissionResponse describes a recorded submission.
type SubmissionResponse struct {
	ID            uint             `json:"id"`
	SurveyID      uint             `json:"survey_id"`
	SurveyTitle   string           `json:"survey_title,omitempty"`
	StudentID     uint             `json:"student_id"`
	Student       string           `json:"student,omitempty"`
	StudentNumber *string          `json:"student_number,omitempty"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	Answers       []AnswerResponse `json:"answers,omitempty"`
}

// SubmissionDetailResponse pairs a submission with the survey it answers.
type SubmissionDetailResponse struct {
	Submission SubmissionResponse `json:"submission"`
	Survey     SurveyResponse     `json:"survey"`
}

// NewSubmissionResponse converts a submission model into a DTO.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	answers := make([]AnswerResponse, 0, len(submission.Answers))
	for _, answer := range submission.Answers {
		answers = append(answers, AnswerResponse{
			QuestionID: answer.QuestionID,
			OptionID:   answer.OptionID,
			TextAnswer: answer.TextAnswer,
		})
	}

	return SubmissionResponse{
		ID:            submission.ID,
		SurveyID:      submission.SurveyID,
		SurveyTitle:   submission.Survey.Title,
		StudentID:     submission.StudentID,
		Student:       submission.Student.Username,
		StudentNumber: submission.Student.StudentNumber,
		SubmittedAt:   submission.SubmittedAt,
		Answers:       answers,
	}
}

// NewSubmissionResponseSlice converts a slice of submissions into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, NewSubmissionResponse(submission))
	}
	return out
}
