package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/models"
)

type submissionFixture struct {
	surveyFixture
	publisher *recordingPublisher
	spy       *invalidationSpy
	service   SubmissionService
	survey    dto.SurveyResponse
}

func newSubmissionFixture(t *testing.T, payload dto.SurveyContentRequest) submissionFixture {
	t.Helper()
	base := newSurveyFixture(t)
	survey, err := base.service.Create(context.Background(), identityOf(base.teacher), payload)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	spy := &invalidationSpy{}
	return submissionFixture{
		surveyFixture: base,
		publisher:     publisher,
		spy:           spy,
		service:       NewSubmissionService(base.surveys, base.submissions, spy, publisher, testLogger()),
		survey:        survey,
	}
}

func multiplePayload() dto.SurveyContentRequest {
	return dto.SurveyContentRequest{
		Title: "Hobbies",
		Questions: []dto.QuestionInput{
			{Text: "Pick any", Type: models.QuestionTypeMultiple, Options: []string{"X", "Y", "Z"}},
		},
	}
}

func TestSubmissionServiceRecordsAnswers(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	ctx := context.Background()

	single := f.survey.Questions[0]
	text := f.survey.Questions[1]
	optionID := single.Options[1].ID

	recorded, err := f.service.Submit(ctx, identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{
		Answers: map[uint]dto.AnswerInput{
			single.ID: {OptionID: &optionID},
			text.ID:   {Text: "  <b>because</b> "},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, recorded.ID)
	require.Equal(t, "Quiz", recorded.SurveyTitle)
	require.Len(t, recorded.Answers, 2)
	require.Equal(t, optionID, *recorded.Answers[0].OptionID)
	require.Equal(t, "because", *recorded.Answers[1].TextAnswer)

	require.Equal(t, []uint{f.survey.ID}, f.spy.surveyIDs)
	require.Equal(t, []string{events.TypeSubmissionRecorded}, f.publisher.types())
}

func TestSubmissionServiceSkipsEmptyAnswers(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())

	recorded, err := f.service.Submit(context.Background(), identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{
		Answers: map[uint]dto.AnswerInput{
			f.survey.Questions[1].ID: {Text: "   "},
		},
	})
	require.NoError(t, err)
	require.Empty(t, recorded.Answers)

	var answers int64
	require.NoError(t, f.db.Model(&models.Answer{}).Count(&answers).Error)
	require.Zero(t, answers)
}

func TestSubmissionServiceSingleChoiceUsesFirstOfList(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	question := f.survey.Questions[0]

	recorded, err := f.service.Submit(context.Background(), identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{
		Answers: map[uint]dto.AnswerInput{
			question.ID: {OptionIDs: []uint{question.Options[1].ID, question.Options[0].ID}},
		},
	})
	require.NoError(t, err)
	require.Len(t, recorded.Answers, 1)
	require.Equal(t, question.Options[1].ID, *recorded.Answers[0].OptionID)
}

func TestSubmissionServiceDeduplicatesMultipleChoice(t *testing.T) {
	f := newSubmissionFixture(t, multiplePayload())
	question := f.survey.Questions[0]
	x, z := question.Options[0].ID, question.Options[2].ID

	recorded, err := f.service.Submit(context.Background(), identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{
		Answers: map[uint]dto.AnswerInput{
			question.ID: {OptionIDs: []uint{x, z, x}},
		},
	})
	require.NoError(t, err)
	require.Len(t, recorded.Answers, 2)
}

func TestSubmissionServiceRejectsForeignOptionAtomically(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	ctx := context.Background()

	other, err := f.surveyFixture.service.Create(ctx, identityOf(f.teacher), multiplePayload())
	require.NoError(t, err)
	foreign := other.Questions[0].Options[0].ID

	_, err = f.service.Submit(ctx, identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{
		Answers: map[uint]dto.AnswerInput{
			f.survey.Questions[1].ID: {Text: "valid"},
			f.survey.Questions[0].ID: {OptionID: &foreign},
		},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	var submissions, answers int64
	require.NoError(t, f.db.Model(&models.Submission{}).Count(&submissions).Error)
	require.NoError(t, f.db.Model(&models.Answer{}).Count(&answers).Error)
	require.Zero(t, submissions)
	require.Zero(t, answers)
	require.Empty(t, f.publisher.types())
}

func TestSubmissionServiceGuardsAccess(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	ctx := context.Background()

	_, err := f.service.Submit(ctx, identityOf(f.teacher), f.survey.ID, dto.SubmissionCreateRequest{})
	require.ErrorIs(t, err, ErrStudentOnly)

	_, err = f.service.Submit(ctx, identityOf(f.student), 777, dto.SubmissionCreateRequest{})
	require.ErrorIs(t, err, ErrSurveyNotFound)

	_, err = f.surveyFixture.service.Toggle(ctx, identityOf(f.teacher), f.survey.ID)
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{})
	require.ErrorIs(t, err, ErrSurveyClosed)
}

func TestSubmissionServiceGetChecksOwnership(t *testing.T) {
	f := newSubmissionFixture(t, quizPayload())
	ctx := context.Background()
	otherStudent := seedUser(t, f.db, "another", models.RoleStudent, "7654321")
	otherTeacher := seedUser(t, f.db, "stranger", models.RoleTeacher, "")

	recorded, err := f.service.Submit(ctx, identityOf(f.student), f.survey.ID, dto.SubmissionCreateRequest{})
	require.NoError(t, err)

	detail, err := f.service.Get(ctx, identityOf(f.student), recorded.ID)
	require.NoError(t, err)
	require.Equal(t, f.survey.ID, detail.Survey.ID)
	require.Len(t, detail.Survey.Questions, 2)

	_, err = f.service.Get(ctx, identityOf(f.teacher), recorded.ID)
	require.NoError(t, err)

	_, err = f.service.Get(ctx, identityOf(otherStudent), recorded.ID)
	require.ErrorIs(t, err, ErrSubmissionForbidden)
	_, err = f.service.Get(ctx, identityOf(otherTeacher), recorded.ID)
	require.ErrorIs(t, err, ErrSubmissionForbidden)
	_, err = f.service.Get(ctx, identityOf(f.student), 4040)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	own, err := f.service.ListOwn(ctx, identityOf(f.student))
	require.NoError(t, err)
	require.Len(t, own, 1)
	none, err := f.service.ListOwn(ctx, identityOf(otherStudent))
	require.NoError(t, err)
	require.Empty(t, none)
}
