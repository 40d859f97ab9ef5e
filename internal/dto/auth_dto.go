package dto

import (
	"time"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// Identity is the request-scoped caller resolved from the session token.
type Identity struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// IsTeacher reports whether the caller has the teacher role.
func (i Identity) IsTeacher() bool {
	return i.UserID != 0 && i.Role == models.RoleTeacher
}

// IsStudent reports whether the caller has the student role.
func (i Identity) IsStudent() bool {
	return i.UserID != 0 && i.Role == models.RoleStudent
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Username      string `json:"username" form:"username" validate:"required,min=3,max=80"`
	Password      string `json:"password" form:"password" validate:"required,min=6,max=128"`
	Role          string `json:"role" form:"role" validate:"required,oneof=teacher student"`
	InviteCode    string `json:"invite_code" form:"invite_code" validate:"omitempty,max=64"`
	StudentNumber string `json:"student_number" form:"student_number" validate:"omitempty,len=7,numeric"`
	RealName      string `json:"real_name" form:"real_name" validate:"omitempty,max=50"`
}

// LoginRequest is the payload for obtaining a session.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next" validate:"omitempty,max=512"`
}

// ProfileUpdateRequest changes one attribute of the caller's student profile.
type ProfileUpdateRequest struct {
	Field           string `json:"field" form:"field" validate:"required,oneof=username password student_number real_name"`
	Value           string `json:"value" form:"value" validate:"required,max=128"`
	CurrentPassword string `json:"current_password" form:"current_password" validate:"omitempty,max=128"`
}

// UserResponse describes an account without credentials.
type UserResponse struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	StudentNumber *string   `json:"student_number,omitempty"`
	RealName      string    `json:"real_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Username:      user.Username,
		Role:          user.Role,
		StudentNumber: user.StudentNumber,
		RealName:      user.RealName,
		CreatedAt:     user.CreatedAt,
	}
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
	Redirect  string       `json:"redirect"`
}
