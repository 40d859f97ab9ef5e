package models

import "time"

// Submission records one attempt by a student at a survey.
type Submission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StudentID   uint      `gorm:"not null;index" json:"student_id"`
	SurveyID    uint      `gorm:"not null;index" json:"survey_id"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	Student     User      `gorm:"foreignKey:StudentID" json:"student"`
	Survey      Survey    `gorm:"foreignKey:SurveyID" json:"survey"`
	Answers     []Answer  `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

// Answer stores a single selected option or a free-text value for a question.
// OptionID and TextAnswer are mutually exclusive.
type Answer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	SurveyID     uint      `gorm:"not null;index" json:"survey_id"`
	QuestionID   uint      `gorm:"not null;index" json:"question_id"`
	StudentID    uint      `gorm:"not null;index" json:"student_id"`
	OptionID     *uint     `gorm:"index" json:"option_id"`
	TextAnswer   *string   `gorm:"type:text" json:"text_answer"`
	CreatedAt    time.Time `json:"created_at"`
	Student      User      `gorm:"foreignKey:StudentID" json:"-"`
}
