package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/observability"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

// FeedbackService exposes the student to teacher feedback channel.
type FeedbackService interface {
	Create(ctx context.Context, identity dto.Identity, payload dto.FeedbackCreateRequest) (dto.FeedbackResponse, error)
	ListOwn(ctx context.Context, identity dto.Identity) ([]dto.FeedbackResponse, error)
	ListAll(ctx context.Context, identity dto.Identity) ([]dto.FeedbackResponse, error)
	MarkRead(ctx context.Context, identity dto.Identity, id uint) (dto.FeedbackResponse, error)
	Reply(ctx context.Context, identity dto.Identity, id uint, payload dto.FeedbackReplyRequest) (dto.FeedbackResponse, error)
}

type feedbackService struct {
	repo      repository.FeedbackRepository
	activity  ActivityRecorder
	publisher events.Publisher
	validator *validator.Validate
	sanitizer plainTextSanitizer
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewFeedbackService constructs the feedback service.
func NewFeedbackService(repo repository.FeedbackRepository, activity ActivityRecorder, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) FeedbackService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &feedbackService{
		repo:      repo,
		activity:  activity,
		publisher: publisher,
		validator: validate,
		sanitizer: newPlainTextSanitizer(),
		logger:    logger.With().Str("component", "feedback_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/questionnaire-api/internal/service/feedback"),
	}
}

func (s *feedbackService) Create(ctx context.Context, identity dto.Identity, payload dto.FeedbackCreateRequest) (dto.FeedbackResponse, error) {
	if !identity.IsStudent() {
		return dto.FeedbackResponse{}, ErrStudentOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	content := s.sanitizer.Sanitize(payload.Content)
	if content == "" {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: feedback content empty after sanitization", ErrInvalidInput)
	}

	feedback := models.Feedback{
		StudentID: identity.UserID,
		Content:   content,
		Status:    models.FeedbackStatusUnread,
	}
	if err := s.repo.Create(ctx, &feedback); err != nil {
		s.logger.Error().Err(err).Uint("student_id", identity.UserID).Msg("failed to store feedback")
		return dto.FeedbackResponse{}, err
	}

	s.logger.Info().Uint("feedback_id", feedback.ID).Msg("feedback received")
	return dto.NewFeedbackResponse(feedback), nil
}

func (s *feedbackService) ListOwn(ctx context.Context, identity dto.Identity) ([]dto.FeedbackResponse, error) {
	if !identity.IsStudent() {
		return nil, ErrStudentOnly
	}

	studentID := identity.UserID
	items, err := s.repo.List(ctx, repository.FeedbackFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	return dto.NewFeedbackResponseSlice(items), nil
}

func (s *feedbackService) ListAll(ctx context.Context, identity dto.Identity) ([]dto.FeedbackResponse, error) {
	if !identity.IsTeacher() {
		return nil, ErrTeacherOnly
	}

	items, err := s.repo.List(ctx, repository.FeedbackFilter{})
	if err != nil {
		return nil, err
	}
	return dto.NewFeedbackResponseSlice(items), nil
}

func (s *feedbackService) MarkRead(ctx context.Context, identity dto.Identity, id uint) (dto.FeedbackResponse, error) {
	if !identity.IsTeacher() {
		return dto.FeedbackResponse{}, ErrTeacherOnly
	}

	if err := s.repo.MarkRead(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	return s.get(ctx, id)
}

// Reply appends a teacher reply; the feedback becomes read in the same transaction.
func (s *feedbackService) Reply(ctx context.Context, identity dto.Identity, id uint, payload dto.FeedbackReplyRequest) (dto.FeedbackResponse, error) {
	if !identity.IsTeacher() {
		return dto.FeedbackResponse{}, ErrTeacherOnly
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	content := s.sanitizer.Sanitize(payload.Reply)
	if content == "" {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: reply content empty after sanitization", ErrInvalidInput)
	}

	spanCtx, span := s.tracer.Start(ctx, "feedback.reply", trace.WithAttributes(
		attribute.Int("feedback.id", int(id)),
	))
	defer span.End()

	reply := models.FeedbackReply{FeedbackID: id, TeacherID: identity.UserID, Content: content}
	if err := s.repo.CreateReply(spanCtx, &reply); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("feedback_id", id).Msg("failed to store feedback reply")
		return dto.FeedbackResponse{}, err
	}

	observability.FeedbackReplies().Inc()
	feedbackID := id
	recordActivity(spanCtx, s.activity, s.logger, ActivityEntry{
		Actor:      identity,
		Action:     ActionFeedbackReplied,
		EntityType: entityFeedback,
		EntityID:   &feedbackID,
		Metadata:   map[string]interface{}{"reply_id": reply.ID},
	})

	response, err := s.get(spanCtx, id)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	publishEvent(spanCtx, s.publisher, s.logger, events.TypeFeedbackReplied, map[string]interface{}{
		"feedback_id": id,
		"reply_id":    reply.ID,
		"student_id":  response.StudentID,
		"teacher_id":  identity.UserID,
	})

	return response, nil
}

func (s *feedbackService) get(ctx context.Context, id uint) (dto.FeedbackResponse, error) {
	feedback, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}
	return dto.NewFeedbackResponse(feedback), nil
}
