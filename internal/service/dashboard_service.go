package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
)

// DashboardService assembles the landing view of each role.
type DashboardService interface {
	Teacher(ctx context.Context, identity dto.Identity) (dto.TeacherDashboardResponse, error)
	Student(ctx context.Context, identity dto.Identity) (dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	surveys     SurveyService
	submissions SubmissionService
	logger      zerolog.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(surveys SurveyService, submissions SubmissionService, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		surveys:     surveys,
		submissions: submissions,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
	}
}

func (s *dashboardService) Teacher(ctx context.Context, identity dto.Identity) (dto.TeacherDashboardResponse, error) {
	if !identity.IsTeacher() {
		return dto.TeacherDashboardResponse{}, ErrTeacherOnly
	}

	surveys, err := s.surveys.ListOwned(ctx, identity)
	if err != nil {
		s.logger.Error().Err(err).Uint("teacher_id", identity.UserID).Msg("failed to load teacher dashboard")
		return dto.TeacherDashboardResponse{}, err
	}

	return dto.TeacherDashboardResponse{Role: models.RoleTeacher, Surveys: surveys}, nil
}

func (s *dashboardService) Student(ctx context.Context, identity dto.Identity) (dto.StudentDashboardResponse, error) {
	if !identity.IsStudent() {
		return dto.StudentDashboardResponse{}, ErrStudentOnly
	}

	surveys, err := s.surveys.ListActive(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load active surveys")
		return dto.StudentDashboardResponse{}, err
	}

	history, err := s.submissions.ListOwn(ctx, identity)
	if err != nil {
		s.logger.Error().Err(err).Uint("student_id", identity.UserID).Msg("failed to load submission history")
		return dto.StudentDashboardResponse{}, err
	}

	return dto.StudentDashboardResponse{Role: models.RoleStudent, Surveys: surveys, Submissions: history}, nil
}
