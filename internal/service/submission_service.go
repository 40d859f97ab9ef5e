package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// SubmissionService records and exposes survey submissions.
type SubmissionService interface {
	Submit(ctx context.Context, identity dto.Identity, surveyID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	ListOwn(ctx context.Context, identity dto.Identity) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, identity dto.Identity, id uint) (dto.SubmissionDetailResponse, error)
}

type submissionService struct {
	surveys     repository.SurveyRepository
	submissions repository.SubmissionRepository
	statistics  StatisticsInvalidator
	publisher   events.Publisher
	sanitizer   plainTextSanitizer
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(
	surveys repository.SurveyRepository,
	submissions repository.SubmissionRepository,
	statistics StatisticsInvalidator,
	publisher events.Publisher,
	logger zerolog.Logger,
) SubmissionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &submissionService{
		surveys:     surveys,
		submissions: submissions,
		statistics:  statistics,
		publisher:   publisher,
		sanitizer:   newPlainTextSanitizer(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/questionnaire-api/internal/service/submission"),
		now:         time.Now,
	}
}

// Submit stores one submission and its answers atomically. Questions without a
// usable answer produce no rows.
func (s *submissionService) Submit(ctx context.Context, identity dto.Identity, surveyID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if !identity.IsStudent() {
		return dto.SubmissionResponse{}, ErrStudentOnly
	}

	survey, err := s.surveys.GetWithQuestions(ctx, surveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSurveyNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if !survey.IsActive {
		return dto.SubmissionResponse{}, ErrSurveyClosed
	}

	answers, err := s.buildAnswers(survey, payload.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "submission.record", trace.WithAttributes(
		attribute.Int("survey.id", int(survey.ID)),
		attribute.Int("submission.answers", len(answers)),
	))
	defer span.End()

	submission := models.Submission{
		StudentID:   identity.UserID,
		SurveyID:    survey.ID,
		SubmittedAt: s.now().UTC(),
	}

	if err := s.submissions.Create(spanCtx, &submission, answers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failure")
		s.logger.Error().Err(err).Uint("survey_id", survey.ID).Uint("student_id", identity.UserID).Msg("failed to record submission")
		return dto.SubmissionResponse{}, ErrSubmissionFailed
	}

	if s.statistics != nil {
		s.statistics.Invalidate(spanCtx, survey.ID)
	}
	observability.SubmissionsRecorded().Inc()
	publishEvent(spanCtx, s.publisher, s.logger, events.TypeSubmissionRecorded, map[string]interface{}{
		"submission_id": submission.ID,
		"survey_id":     survey.ID,
		"student_id":    identity.UserID,
		"answers":       len(submission.Answers),
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("survey_id", survey.ID).
		Int("answers", len(submission.Answers)).
		Msg("submission recorded")

	submission.Survey = survey
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) ListOwn(ctx context.Context, identity dto.Identity) ([]dto.SubmissionResponse, error) {
	if !identity.IsStudent() {
		return nil, ErrStudentOnly
	}

	studentID := identity.UserID
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Get returns a submission to its student or to the teacher who owns the survey.
func (s *submissionService) Get(ctx context.Context, identity dto.Identity, id uint) (dto.SubmissionDetailResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetailResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionDetailResponse{}, err
	}

	switch {
	case identity.IsStudent():
		if submission.StudentID != identity.UserID {
			return dto.SubmissionDetailResponse{}, ErrSubmissionForbidden
		}
	case identity.IsTeacher():
		if submission.Survey.TeacherID != identity.UserID {
			return dto.SubmissionDetailResponse{}, ErrSubmissionForbidden
		}
	default:
		return dto.SubmissionDetailResponse{}, ErrSubmissionForbidden
	}

	survey, err := s.surveys.GetWithQuestions(ctx, submission.SurveyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionDetailResponse{}, ErrSurveyNotFound
		}
		return dto.SubmissionDetailResponse{}, err
	}

	return dto.SubmissionDetailResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Survey:     dto.NewSurveyResponse(survey),
	}, nil
}

func (s *submissionService) buildAnswers(survey models.Survey, inputs map[uint]dto.AnswerInput) ([]models.Answer, error) {
	answers := make([]models.Answer, 0, len(inputs))

	for _, question := range survey.Questions {
		input, ok := inputs[question.ID]
		if !ok {
			continue
		}

		switch question.Type {
		case models.QuestionTypeText:
			text := s.sanitizer.Sanitize(input.Text)
			if text == "" {
				continue
			}
			answers = append(answers, models.Answer{QuestionID: question.ID, TextAnswer: &text})

		case models.QuestionTypeSingle:
			optionID := input.OptionID
			if optionID == nil && len(input.OptionIDs) > 0 {
				first := input.OptionIDs[0]
				optionID = &first
			}
			if optionID == nil {
				continue
			}
			if !question.HasOption(*optionID) {
				return nil, fmt.Errorf("%w: option %d does not belong to question %d", ErrInvalidInput, *optionID, question.ID)
			}
			selected := *optionID
			answers = append(answers, models.Answer{QuestionID: question.ID, OptionID: &selected})

		case models.QuestionTypeMultiple:
			selected := input.OptionIDs
			if input.OptionID != nil {
				selected = append([]uint{*input.OptionID}, selected...)
			}
			seen := make(map[uint]struct{}, len(selected))
			for _, optionID := range selected {
				if _, dup := seen[optionID]; dup {
					continue
				}
				seen[optionID] = struct{}{}
				if !question.HasOption(optionID) {
					return nil, fmt.Errorf("%w: option %d does not belong to question %d", ErrInvalidInput, optionID, question.ID)
				}
				id := optionID
				answers = append(answers, models.Answer{QuestionID: question.ID, OptionID: &id})
			}

		default:
			s.logger.Warn().Uint("question_id", question.ID).Str("type", question.Type).Msg("skipping question with unknown type")
		}
	}

	return answers, nil
}
