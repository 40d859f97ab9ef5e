package dto

import (
	"time"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// FeedbackCreateRequest is the payload a student posts.
type FeedbackCreateRequest struct {
	Content string `json:"content" form:"content" validate:"required,max=4000"`
}

// FeedbackReplyRequest is the payload a teacher posts when replying.
type FeedbackReplyRequest struct {
	Reply string `json:"reply" form:"reply" validate:"required,max=4000"`
}

// FeedbackReplyResponse is one reply within a feedback thread.
type FeedbackReplyResponse struct {
	ID        uint      `json:"id"`
	TeacherID uint      `json:"teacher_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackResponse is a feedback message with its replies.
type FeedbackResponse struct {
	ID        uint                    `json:"id"`
	StudentID uint                    `json:"student_id"`
	Student   string                  `json:"student,omitempty"`
	Content   string                  `json:"content"`
	Status    string                  `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	Replies   []FeedbackReplyResponse `json:"replies"`
}

// NewFeedbackReplyResponse converts a reply model into a DTO.
func NewFeedbackReplyResponse(reply models.FeedbackReply) FeedbackReplyResponse {
	return FeedbackReplyResponse{
		ID:        reply.ID,
		TeacherID: reply.TeacherID,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
	}
}

// NewFeedbackResponse converts a feedback model into a DTO.
func NewFeedbackResponse(feedback models.Feedback) FeedbackResponse {
	replies := make([]FeedbackReplyResponse, 0, len(feedback.Replies))
	for _, reply := range feedback.Replies {
		replies = append(replies, NewFeedbackReplyResponse(reply))
	}

	return FeedbackResponse{
		ID:        feedback.ID,
		StudentID: feedback.StudentID,
		Student:   feedback.Student.Username,
		Content:   feedback.Content,
		Status:    feedback.Status,
		CreatedAt: feedback.CreatedAt,
		Replies:   replies,
	}
}

// NewFeedbackResponseSlice converts a slice of feedback models into DTOs.
func NewFeedbackResponseSlice(items []models.Feedback) []FeedbackResponse {
	out := make([]FeedbackResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewFeedbackResponse(item))
	}
	return out
}
