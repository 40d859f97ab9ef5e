package models

import "time"

const (
	// FeedbackStatusUnread is the initial state of a feedback message.
	FeedbackStatusUnread = "unread"
	// FeedbackStatusRead is set once a teacher has read or replied.
	FeedbackStatusRead = "read"
)

// Feedback is a free-text message from a student to teachers.
type Feedback struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	StudentID uint            `gorm:"not null;index" json:"student_id"`
	Content   string          `gorm:"type:text;not null" json:"content"`
	Status    string          `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Student   User            `gorm:"foreignKey:StudentID" json:"student"`
	Replies   []FeedbackReply `gorm:"foreignKey:FeedbackID" json:"replies"`
}

// FeedbackReply is a teacher's answer within a feedback thread.
type FeedbackReply struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedbackID uint      `gorm:"not null;index" json:"feedback_id"`
	TeacherID  uint      `gorm:"not null;index" json:"teacher_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
