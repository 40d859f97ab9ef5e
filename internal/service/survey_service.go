package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/observability"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

const maxCodeAttempts = 16

// SurveyService exposes survey authoring and lookup use-cases.
type SurveyService interface {
	Create(ctx context.Context, identity dto.Identity, payload dto.SurveyContentRequest) (dto.SurveyResponse, error)
	ListOwned(ctx context.Context, identity dto.Identity) ([]dto.SurveySummary, error)
	GetOwned(ctx context.Context, identity dto.Identity, id uint) (dto.SurveyResponse, error)
	Edit(ctx context.Context, identity dto.Identity, id uint, payload dto.SurveyContentRequest) (dto.SurveyEditResponse, error)
	Toggle(ctx context.Context, identity dto.Identity, id uint) (dto.SurveyResponse, error)
	Delete(ctx context.Context, identity dto.Identity, id uint) error
	ListSubmissions(ctx context.Context, identity dto.Identity, id uint) ([]dto.SubmissionResponse, error)
	ListActive(ctx context.Context) ([]dto.SurveySummary, error)
	GetActive(ctx context.Context, id uint) (dto.SurveyResponse, error)
}

// StatisticsInvalidator drops cached statistics of a survey.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context, surveyID uint)
}

type surveyService struct {
	surveys     repository.SurveyRepository
	submissions repository.SubmissionRepository
	activity    ActivityRecorder
	publisher   events.Publisher
	statistics  StatisticsInvalidator
	validator   *validator.Validate
	sanitizer   plainTextSanitizer
	logger      zerolog.Logger
	tracer      trace.Tracer
	newCode     func() (string, error)
}

// NewSurveyService constructs the survey authoring service.
func NewSurveyService(
	surveys repository.SurveyRepository,
	submissions repository.SubmissionRepository,
	activity ActivityRecorder,
	publisher events.Publisher,
	statistics StatisticsInvalidator,
	validate *validator.Validate,
	logger zerolog.Logger,
) SurveyService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &surveyService{
		surveys:     surveys,
		submissions: submissions,
		activity:    activity,
		publisher:   publisher,
		statistics:  statistics,
		validator:   validate,
		sanitizer:   newPlainTextSanitizer(),
		logger:      logger.With().Str("component", "survey_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/questionnaire-api/internal/service/survey"),
		newCode:     randomSurveyCode,
	}
}

func (s *surveyService) Create(ctx context.Context, identity dto.Identity, payload dto.SurveyContentRequest) (dto.SurveyResponse, error) {
	if !identity.IsTeacher() {
		return dto.SurveyResponse{}, ErrTeacherOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveyResponse{}, err
	}

	content, err := normalizeSurveyContent(payload, s.sanitizer.Sanitize)
	if err != nil {
		return dto.SurveyResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "survey.create", trace.WithAttributes(
		attribute.Int("survey.teacher_id", int(identity.UserID)),
		attribute.Int("survey.questions", len(content.Questions)),
	))
	defer span.End()

	code, err := s.uniqueCode(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "code generation failed")
		s.logger.Error().Err(err).Msg("failed to allocate survey code")
		return dto.SurveyResponse{}, ErrSurveyAuthoringFailed
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	survey := models.Survey{
		Title:     content.Title,
		TeacherID: identity.UserID,
		IsActive:  active,
		Code:      code,
		Version:   1,
		Questions: content.buildQuestions(),
	}

	if err := s.surveys.Create(spanCtx, &survey); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failure")
		s.logger.Error().Err(err).Uint("teacher_id", identity.UserID).Msg("failed to create survey")
		return dto.SurveyResponse{}, ErrSurveyAuthoringFailed
	}

	observability.SurveyVersions().WithLabelValues("created").Inc()
	surveyID := survey.ID
	recordActivity(spanCtx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     ActionSurveyCreated,
		EntityType: entitySurvey,
		EntityID:   &surveyID,
		Metadata:   map[string]interface{}{"title": survey.Title, "code": survey.Code},
	})

	s.logger.Info().Uint("survey_id", survey.ID).Uint("teacher_id", identity.UserID).Msg("survey created")

	return dto.NewSurveyResponse(survey), nil
}

func (s *surveyService) ListOwned(ctx context.Context, identity dto.Identity) ([]dto.SurveySummary, error) {
	surveys, err := s.surveys.ListByTeacher(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return s.summaries(ctx, surveys)
}

func (s *surveyService) GetOwned(ctx context.Context, identity dto.Identity, id uint) (dto.SurveyResponse, error) {
	survey, err := s.loadOwned(ctx, identity, id, true)
	if err != nil {
		return dto.SurveyResponse{}, err
	}
	return dto.NewSurveyResponse(survey), nil
}

// Edit classifies the submitted content against the stored survey. A change to
// anything but the active flag forks a new version in the same lineage and
// leaves the original row untouched.
func (s *surveyService) Edit(ctx context.Context, identity dto.Identity, id uint, payload dto.SurveyContentRequest) (dto.SurveyEditResponse, error) {
	current, err := s.loadOwned(ctx, identity, id, true)
	if err != nil {
		return dto.SurveyEditResponse{}, err
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveyEditResponse{}, err
	}

	next, err := normalizeSurveyContent(payload, s.sanitizer.Sanitize)
	if err != nil {
		return dto.SurveyEditResponse{}, err
	}

	active := current.IsActive
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	spanCtx, span := s.tracer.Start(ctx, "survey.edit", trace.WithAttributes(
		attribute.Int("survey.id", int(current.ID)),
	))
	defer span.End()

	if !isStructuralChange(contentFromSurvey(current), next) {
		span.SetAttributes(attribute.String("survey.edit_kind", "cosmetic"))
		if active != current.IsActive {
			if err := s.surveys.UpdateActive(spanCtx, current.ID, active); err != nil {
				span.RecordError(err)
				s.logger.Error().Err(err).Uint("survey_id", current.ID).Msg("failed to update survey status")
				return dto.SurveyEditResponse{}, ErrSurveyAuthoringFailed
			}
			current.IsActive = active
			s.recordStatusChange(spanCtx, identity, current)
		}
		observability.SurveyVersions().WithLabelValues("cosmetic").Inc()
		return dto.SurveyEditResponse{Versioned: false, Survey: dto.NewSurveyResponse(current)}, nil
	}

	span.SetAttributes(attribute.String("survey.edit_kind", "structural"))

	code, err := s.uniqueCode(spanCtx)
	if err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Msg("failed to allocate survey code")
		return dto.SurveyEditResponse{}, ErrSurveyAuthoringFailed
	}

	base := baseTitle(next.Title)
	if base == "" {
		base = next.Title
	}
	rootID := current.LineageRoot()
	fork := models.Survey{
		TeacherID: current.TeacherID,
		IsActive:  active,
		Code:      code,
		RootID:    &rootID,
		Questions: next.buildQuestions(),
	}

	if err := s.surveys.CreateVersion(spanCtx, &fork, func(version int) string {
		return versionedTitle(base, version)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failure")
		s.logger.Error().Err(err).Uint("survey_id", current.ID).Msg("failed to fork survey version")
		return dto.SurveyEditResponse{}, ErrSurveyAuthoringFailed
	}

	observability.SurveyVersions().WithLabelValues("versioned").Inc()
	forkID := fork.ID
	recordActivity(spanCtx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     ActionSurveyVersioned,
		EntityType: entitySurvey,
		EntityID:   &forkID,
		Metadata: map[string]interface{}{
			"previous_id": current.ID,
			"root_id":     rootID,
			"version":     fork.Version,
			"title":       fork.Title,
		},
	})
	publishEvent(spanCtx, s.publisher, s.logger, events.TypeSurveyVersioned, map[string]interface{}{
		"survey_id":   fork.ID,
		"previous_id": current.ID,
		"root_id":     rootID,
		"version":     fork.Version,
		"teacher_id":  fork.TeacherID,
	})

	s.logger.Info().
		Uint("survey_id", fork.ID).
		Uint("previous_id", current.ID).
		Int("version", fork.Version).
		Msg("survey versioned")

	return dto.SurveyEditResponse{Versioned: true, Survey: dto.NewSurveyResponse(fork)}, nil
}

func (s *surveyService) Toggle(ctx context.Context, identity dto.Identity, id uint) (dto.SurveyResponse, error) {
	survey, err := s.loadOwned(ctx, identity, id, false)
	if err != nil {
		return dto.SurveyResponse{}, err
	}

	next := !survey.IsActive
	if err := s.surveys.UpdateActive(ctx, survey.ID, next); err != nil {
		s.logger.Error().Err(err).Uint("survey_id", survey.ID).Msg("failed to toggle survey")
		return dto.SurveyResponse{}, ErrSurveyAuthoringFailed
	}
	survey.IsActive = next
	s.recordStatusChange(ctx, identity, survey)

	return dto.NewSurveyResponse(survey), nil
}

func (s *surveyService) Delete(ctx context.Context, identity dto.Identity, id uint) error {
	survey, err := s.loadOwned(ctx, identity, id, false)
	if err != nil {
		return err
	}

	if err := s.surveys.Delete(ctx, survey.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSurveyNotFound
		}
		s.logger.Error().Err(err).Uint("survey_id", survey.ID).Msg("failed to delete survey")
		return fmt.Errorf("delete survey %d: %w", survey.ID, err)
	}

	if s.statistics != nil {
		s.statistics.Invalidate(ctx, survey.ID)
	}

	surveyID := survey.ID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     ActionSurveyDeleted,
		EntityType: entitySurvey,
		EntityID:   &surveyID,
		Metadata:   map[string]interface{}{"title": survey.Title, "code": survey.Code},
	})

	s.logger.Info().Uint("survey_id", survey.ID).Msg("survey deleted")
	return nil
}

func (s *surveyService) ListSubmissions(ctx context.Context, identity dto.Identity, id uint) ([]dto.SubmissionResponse, error) {
	survey, err := s.loadOwned(ctx, identity, id, false)
	if err != nil {
		return nil, err
	}

	surveyID := survey.ID
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{SurveyID: &surveyID})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *surveyService) ListActive(ctx context.Context) ([]dto.SurveySummary, error) {
	surveys, err := s.surveys.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SurveySummary, 0, len(surveys))
	for _, survey := range surveys {
		out = append(out, dto.NewSurveySummary(survey, 0))
	}
	return out, nil
}

func (s *surveyService) GetActive(ctx context.Context, id uint) (dto.SurveyResponse, error) {
	survey, err := s.surveys.GetWithQuestions(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SurveyResponse{}, ErrSurveyNotFound
		}
		return dto.SurveyResponse{}, err
	}
	if !survey.IsActive {
		return dto.SurveyResponse{}, ErrSurveyClosed
	}
	return dto.NewSurveyResponse(survey), nil
}

func (s *surveyService) loadOwned(ctx context.Context, identity dto.Identity, id uint, withQuestions bool) (models.Survey, error) {
	return loadOwnedSurvey(ctx, s.surveys, identity, id, withQuestions)
}

func (s *surveyService) summaries(ctx context.Context, surveys []models.Survey) ([]dto.SurveySummary, error) {
	ids := make([]uint, 0, len(surveys))
	for _, survey := range surveys {
		ids = append(ids, survey.ID)
	}

	counts, err := s.submissions.CountBySurveys(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SurveySummary, 0, len(surveys))
	for _, survey := range surveys {
		out = append(out, dto.NewSurveySummary(survey, counts[survey.ID]))
	}
	return out, nil
}

func (s *surveyService) recordStatusChange(ctx context.Context, identity dto.Identity, survey models.Survey) {
	surveyID := survey.ID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     ActionSurveyStatusChanged,
		EntityType: entitySurvey,
		EntityID:   &surveyID,
		Metadata:   map[string]interface{}{"is_active": survey.IsActive},
	})
}

func (s *surveyService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		exists, err := s.surveys.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no unused survey code after %d attempts", maxCodeAttempts)
}

// loadOwnedSurvey resolves a survey and checks that identity authored it.
func loadOwnedSurvey(ctx context.Context, surveys repository.SurveyRepository, identity dto.Identity, id uint, withQuestions bool) (models.Survey, error) {
	var (
		survey models.Survey
		err    error
	)
	if withQuestions {
		survey, err = surveys.GetWithQuestions(ctx, id)
	} else {
		survey, err = surveys.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Survey{}, ErrSurveyNotFound
		}
		return models.Survey{}, err
	}

	if !identity.IsTeacher() || survey.TeacherID != identity.UserID {
		return models.Survey{}, ErrSurveyForbidden
	}
	return survey, nil
}
