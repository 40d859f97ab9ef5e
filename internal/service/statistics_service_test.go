package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
)

func TestPercentageRoundsToTwoDecimals(t *testing.T) {
	require.Equal(t, 66.67, percentage(2, 3))
	require.Equal(t, 33.33, percentage(1, 3))
	require.Equal(t, 100.0, percentage(4, 4))
	require.Zero(t, percentage(3, 0))
}

func TestBuildSurveyStatisticsSingleChoice(t *testing.T) {
	a, b := uint(11), uint(12)
	survey := models.Survey{
		ID:    1,
		Title: "Quiz",
		Questions: []models.Question{{
			ID:   5,
			Text: "Pick one",
			Type: models.QuestionTypeSingle,
			Options: []models.Option{
				{ID: a, Text: "A"},
				{ID: b, Text: "B"},
			},
		}},
	}
	answers := []models.Answer{
		{SubmissionID: 1, QuestionID: 5, OptionID: &a},
		{SubmissionID: 2, QuestionID: 5, OptionID: &a},
		{SubmissionID: 3, QuestionID: 5, OptionID: &b},
	}

	stats := buildSurveyStatistics(survey, 3, answers, time.Unix(0, 0))
	require.Equal(t, int64(3), stats.TotalResponses)
	question := stats.Questions[0]
	require.Equal(t, int64(3), question.Denominator)
	require.Equal(t, int64(2), question.Options[0].Count)
	require.Equal(t, 66.67, question.Options[0].Percentage)
	require.Equal(t, 33.33, question.Options[1].Percentage)
}

func TestBuildSurveyStatisticsMultipleChoiceUsesSelections(t *testing.T) {
	x, y := uint(21), uint(22)
	survey := models.Survey{
		ID: 2,
		Questions: []models.Question{{
			ID:      7,
			Type:    models.QuestionTypeMultiple,
			Options: []models.Option{{ID: x, Text: "X"}, {ID: y, Text: "Y"}},
		}},
	}
	answers := []models.Answer{
		{SubmissionID: 1, QuestionID: 7, OptionID: &x},
		{SubmissionID: 1, QuestionID: 7, OptionID: &y},
		{SubmissionID: 2, QuestionID: 7, OptionID: &x},
		{SubmissionID: 3, QuestionID: 7, OptionID: &x},
	}

	stats := buildSurveyStatistics(survey, 3, answers, time.Unix(0, 0))
	question := stats.Questions[0]
	require.Equal(t, int64(3), question.TotalResponses)
	require.Equal(t, int64(4), question.Denominator)
	require.Equal(t, 75.0, question.Options[0].Percentage)
	require.Equal(t, 25.0, question.Options[1].Percentage)
}

func TestBuildSurveyStatisticsReportsSurveyTotalOnEveryQuestion(t *testing.T) {
	a := uint(31)
	survey := models.Survey{
		ID: 4,
		Questions: []models.Question{
			{ID: 1, Type: models.QuestionTypeSingle, Options: []models.Option{{ID: a, Text: "A"}}},
			{ID: 2, Type: models.QuestionTypeText},
		},
	}
	text := "fun"
	answers := []models.Answer{
		{SubmissionID: 1, QuestionID: 1, OptionID: &a},
		{SubmissionID: 2, QuestionID: 1, OptionID: &a},
		{SubmissionID: 2, QuestionID: 2, TextAnswer: &text},
	}

	stats := buildSurveyStatistics(survey, 3, answers, time.Unix(0, 0))
	require.Equal(t, int64(3), stats.TotalResponses)
	require.Equal(t, int64(3), stats.Questions[0].TotalResponses)
	require.Equal(t, int64(2), stats.Questions[0].Denominator)
	require.Equal(t, 100.0, stats.Questions[0].Options[0].Percentage)
	require.Equal(t, int64(3), stats.Questions[1].TotalResponses)
	require.Equal(t, int64(1), stats.Questions[1].Denominator)
	require.Len(t, stats.Questions[1].TextAnswers, 1)
}

func TestBuildSurveyStatisticsWithoutSubmissions(t *testing.T) {
	survey := models.Survey{
		ID: 3,
		Questions: []models.Question{
			{ID: 1, Type: models.QuestionTypeSingle, Options: []models.Option{{ID: 1, Text: "A"}}},
			{ID: 2, Type: models.QuestionTypeText},
		},
	}

	stats := buildSurveyStatistics(survey, 0, nil, time.Unix(0, 0))
	require.Zero(t, stats.TotalResponses)
	require.Len(t, stats.Questions, 2)
	require.Zero(t, stats.Questions[0].Options[0].Count)
	require.Zero(t, stats.Questions[0].Options[0].Percentage)
	require.Empty(t, stats.Questions[1].TextAnswers)
}

func TestStatisticsServiceAggregatesAndCaches(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stats := NewStatisticsService(f.surveys, f.submissions, client, time.Minute, testLogger())

	single := f.survey.Questions[0]
	text := f.survey.Questions[1]
	choices := []uint{single.Options[0].ID, single.Options[0].ID, single.Options[1].ID}
	for i, choice := range choices {
		student := seedUser(t, f.db, "pupil"+string(rune('a'+i)), models.RoleStudent, "100000"+string(rune('0'+i)))
		optionID := choice
		_, err := f.service.Submit(ctx, identityOf(student), f.survey.ID, dto.SubmissionCreateRequest{
			Answers: map[uint]dto.AnswerInput{
				single.ID: {OptionID: &optionID},
				text.ID:   {Text: "reason"},
			},
		})
		require.NoError(t, err)
	}

	first, err := stats.ForSurvey(ctx, identityOf(f.teacher), f.survey.ID)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, int64(3), first.TotalResponses)
	require.Equal(t, 66.67, first.Questions[0].Options[0].Percentage)
	require.Equal(t, 33.33, first.Questions[0].Options[1].Percentage)
	require.Len(t, first.Questions[1].TextAnswers, 3)
	require.Equal(t, "pupila", first.Questions[1].TextAnswers[0].Student)
	require.True(t, mr.Exists(statisticsCacheKey(f.survey.ID)))

	second, err := stats.ForSurvey(ctx, identityOf(f.teacher), f.survey.ID)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.TotalResponses, second.TotalResponses)

	stats.Invalidate(ctx, f.survey.ID)
	require.False(t, mr.Exists(statisticsCacheKey(f.survey.ID)))

	third, err := stats.ForSurvey(ctx, identityOf(f.teacher), f.survey.ID)
	require.NoError(t, err)
	require.False(t, third.CacheHit)
}

func TestStatisticsServiceRequiresOwnership(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	stats := NewStatisticsService(f.surveys, f.submissions, nil, 0, testLogger())
	other := seedUser(t, f.db, "stranger", models.RoleTeacher, "")

	_, err := stats.ForSurvey(context.Background(), identityOf(other), f.survey.ID)
	require.ErrorIs(t, err, ErrSurveyForbidden)
	_, err = stats.ForSurvey(context.Background(), identityOf(f.student), f.survey.ID)
	require.ErrorIs(t, err, ErrSurveyForbidden)

	response, err := stats.ForSurvey(context.Background(), identityOf(f.teacher), f.survey.ID)
	require.NoError(t, err)
	require.Zero(t, response.TotalResponses)
}
