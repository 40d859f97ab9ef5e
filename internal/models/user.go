package models

import "time"

const (
	// RoleTeacher marks accounts that author surveys.
	RoleTeacher = "teacher"
	// RoleStudent marks accounts that take surveys.
	RoleStudent = "student"
)

// User is an authenticated account of either role.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:80;uniqueIndex;not null" json:"username"`
	PasswordHash  string    `gorm:"size:120;not null" json:"-"`
	Role          string    `gorm:"size:20;not null;index" json:"role"`
	StudentNumber *string   `gorm:"size:7;uniqueIndex" json:"student_number,omitempty"`
	RealName      string    `gorm:"size:50" json:"real_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTeacher reports whether the account may author surveys.
func (u User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// IsStudent reports whether the account may take surveys.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}
