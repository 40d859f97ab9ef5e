package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

// Audit trail actions.
const (
	ActionSurveyCreated       = "survey.created"
	ActionSurveyVersioned     = "survey.versioned"
	ActionSurveyStatusChanged = "survey.status_changed"
	ActionSurveyDeleted       = "survey.deleted"
	ActionFeedbackReplied     = "feedback.replied"
)

// Audited entity types.
const (
	entitySurvey   = "survey"
	entityFeedback = "feedback"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor      dto.Identity
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder persists audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService records and lists the audit trail of teacher actions.
type ActivityService interface {
	ActivityRecorder
	ListOwn(ctx context.Context, identity dto.Identity, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action == "" {
		return dto.ActivityResponse{}, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	if entityType == "" {
		return dto.ActivityResponse{}, fmt.Errorf("%w: entity type is required", ErrInvalidInput)
	}

	model := models.ActivityLog{
		ActorID:    entry.Actor.UserID,
		ActorRole:  actorRole(entry.Actor.Role),
		Action:     action,
		EntityType: entityType,
		EntityID:   entry.EntityID,
		Metadata:   maskMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) ListOwn(ctx context.Context, identity dto.Identity, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	actorID := identity.UserID
	filter := repository.ActivityLogFilter{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    &actorID,
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
	}
	if req.SurveyID > 0 {
		surveyID := req.SurveyID
		filter.EntityType = entitySurvey
		filter.EntityID = &surveyID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return dto.ActivityListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

// recordActivity writes an audit entry without failing the calling operation.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

func maskMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	masked := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
			masked[key] = "***"
			continue
		}
		masked[key] = value
	}
	return masked
}

func actorRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
