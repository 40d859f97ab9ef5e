package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/observability"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

// StatisticsService aggregates per-question answer statistics for survey owners.
type StatisticsService interface {
	StatisticsInvalidator
	ForSurvey(ctx context.Context, identity dto.Identity, surveyID uint) (dto.SurveyStatisticsResponse, error)
}

type statisticsService struct {
	surveys     repository.SurveyRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewStatisticsService constructs the statistics service. A nil cache disables caching.
func NewStatisticsService(surveys repository.SurveyRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatisticsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &statisticsService{
		surveys:     surveys,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "statistics_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/questionnaire-api/internal/service/statistics"),
		now:         time.Now,
	}
}

func statisticsCacheKey(surveyID uint) string {
	return fmt.Sprintf("stats:survey:%d", surveyID)
}

func (s *statisticsService) ForSurvey(ctx context.Context, identity dto.Identity, surveyID uint) (dto.SurveyStatisticsResponse, error) {
	if _, err := loadOwnedSurvey(ctx, s.surveys, identity, surveyID, false); err != nil {
		return dto.SurveyStatisticsResponse{}, err
	}

	cacheKey := statisticsCacheKey(surveyID)
	ctx, span := s.tracer.Start(ctx, "statistics.aggregate", trace.WithAttributes(
		attribute.String("statistics.cache_key", cacheKey),
	))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		switch {
		case err == nil:
			var response dto.SurveyStatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("statistics.cache_hit", true))
				observability.StatisticsCacheLookups().WithLabelValues("hit").Inc()
				return response, nil
			}
		case errors.Is(err, redis.Nil):
			observability.StatisticsCacheLookups().WithLabelValues("miss").Inc()
		default:
			s.logger.Warn().Err(err).Msg("failed to read statistics cache")
			span.RecordError(err)
		}
	}

	survey, err := s.surveys.GetWithQuestions(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_survey_failed")
		return dto.SurveyStatisticsResponse{}, err
	}

	total, err := s.submissions.CountBySurvey(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_submissions_failed")
		return dto.SurveyStatisticsResponse{}, err
	}

	answers, err := s.submissions.ListAnswersBySurvey(ctx, surveyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_answers_failed")
		return dto.SurveyStatisticsResponse{}, err
	}

	response := buildSurveyStatistics(survey, total, answers, s.now().UTC())
	span.SetAttributes(
		attribute.Int64("statistics.total_responses", total),
		attribute.Int("statistics.answers", len(answers)),
	)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store statistics cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *statisticsService) Invalidate(ctx context.Context, surveyID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statisticsCacheKey(surveyID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("survey_id", surveyID).Msg("failed to invalidate statistics cache")
	}
}

// buildSurveyStatistics tallies answers per question. Every question reports
// the survey-wide submission count. Single-choice percentages are relative to
// the submissions that answered the question, multiple-choice percentages to
// the total number of selections.
func buildSurveyStatistics(survey models.Survey, totalSubmissions int64, answers []models.Answer, generatedAt time.Time) dto.SurveyStatisticsResponse {
	byQuestion := make(map[uint][]models.Answer, len(survey.Questions))
	for _, answer := range answers {
		byQuestion[answer.QuestionID] = append(byQuestion[answer.QuestionID], answer)
	}

	questions := make([]dto.QuestionStatistics, 0, len(survey.Questions))
	for _, question := range survey.Questions {
		rows := byQuestion[question.ID]

		respondents := make(map[uint]struct{}, len(rows))
		for _, row := range rows {
			respondents[row.SubmissionID] = struct{}{}
		}

		stats := dto.QuestionStatistics{
			QuestionID:     question.ID,
			Text:           question.Text,
			Type:           question.Type,
			Position:       question.Position,
			TotalResponses: totalSubmissions,
			Options:        []dto.OptionStatistics{},
		}

		switch question.Type {
		case models.QuestionTypeText:
			stats.Denominator = int64(len(rows))
			stats.TextAnswers = make([]dto.TextAnswerStatistics, 0, len(rows))
			for _, row := range rows {
				if row.TextAnswer == nil {
					continue
				}
				stats.TextAnswers = append(stats.TextAnswers, dto.TextAnswerStatistics{
					Answer:        *row.TextAnswer,
					Student:       row.Student.Username,
					StudentNumber: row.Student.StudentNumber,
				})
			}

		case models.QuestionTypeSingle, models.QuestionTypeMultiple:
			counts := make(map[uint]int64, len(question.Options))
			var selections int64
			for _, row := range rows {
				if row.OptionID == nil {
					continue
				}
				counts[*row.OptionID]++
				selections++
			}

			if question.Type == models.QuestionTypeSingle {
				stats.Denominator = int64(len(respondents))
			} else {
				stats.Denominator = selections
			}

			for _, option := range question.Options {
				count := counts[option.ID]
				stats.Options = append(stats.Options, dto.OptionStatistics{
					OptionID:   option.ID,
					Text:       option.Text,
					Count:      count,
					Percentage: percentage(count, stats.Denominator),
				})
			}
		}

		questions = append(questions, stats)
	}

	return dto.SurveyStatisticsResponse{
		SurveyID:       survey.ID,
		Title:          survey.Title,
		TotalResponses: totalSubmissions,
		Questions:      questions,
		GeneratedAt:    generatedAt,
	}
}

func percentage(count, denominator int64) float64 {
	if denominator <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(denominator)*100*100) / 100
}
