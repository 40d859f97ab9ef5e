package models

import "time"

const (
	// QuestionTypeSingle allows one option per submission.
	QuestionTypeSingle = "single"
	// QuestionTypeMultiple allows any number of options per submission.
	QuestionTypeMultiple = "multiple"
	// QuestionTypeText collects a free-text answer.
	QuestionTypeText = "text"
)

// Survey is a questionnaire owned by a teacher. Structural edits never mutate
// a survey; they fork a new row in the same lineage.
type Survey struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	TeacherID uint       `gorm:"not null;index" json:"teacher_id"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	Code      string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	RootID    *uint      `gorm:"index" json:"root_id"`
	Version   int        `gorm:"not null" json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Teacher   User       `gorm:"foreignKey:TeacherID" json:"-"`
	Questions []Question `gorm:"foreignKey:SurveyID" json:"questions,omitempty"`
}

// LineageRoot returns the id of the first survey in this survey's version chain.
func (s Survey) LineageRoot() uint {
	if s.RootID != nil {
		return *s.RootID
	}
	return s.ID
}

// Question belongs to exactly one survey.
type Question struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	SurveyID uint     `gorm:"not null;index" json:"survey_id"`
	Text     string   `gorm:"size:500;not null" json:"text"`
	Type     string   `gorm:"size:20;not null" json:"type"`
	Position int      `gorm:"not null" json:"position"`
	Options  []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

// IsChoice reports whether the question is answered by selecting options.
func (q Question) IsChoice() bool {
	return q.Type == QuestionTypeSingle || q.Type == QuestionTypeMultiple
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID uint) bool {
	for _, option := range q.Options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}

// Option belongs to exactly one choice question.
type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:200;not null" json:"text"`
	Position   int    `gorm:"not null" json:"position"`
}

// IsValidQuestionType reports whether value names a supported question type.
func IsValidQuestionType(value string) bool {
	switch value {
	case QuestionTypeSingle, QuestionTypeMultiple, QuestionTypeText:
		return true
	default:
		return false
	}
}
