package service

import "errors"

// Validation-class failures.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrStudentNumberTaken = errors.New("student number already registered")
	ErrInvalidInviteCode  = errors.New("invalid teacher invite code")
)

// Authentication and authorization failures.
var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrSurveyForbidden     = errors.New("survey belongs to another teacher")
	ErrSubmissionForbidden = errors.New("submission is not accessible")
	ErrStudentOnly         = errors.New("only students can perform this action")
	ErrTeacherOnly         = errors.New("only teachers can perform this action")
)

// Lookup failures.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSurveyNotFound     = errors.New("survey not found")
	ErrSurveyClosed       = errors.New("survey is not accepting responses")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrFeedbackNotFound   = errors.New("feedback not found")
)

// Store failures during multi-row writes surface as these generic errors.
var (
	ErrSurveyAuthoringFailed = errors.New("failed to save survey")
	ErrSubmissionFailed      = errors.New("failed to record submission")
)
