package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/database"
	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role, studentNumber string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", Role: role}
	if studentNumber != "" {
		number := studentNumber
		user.StudentNumber = &number
		user.RealName = strings.ToUpper(username)
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func identityOf(user models.User) dto.Identity {
	return dto.Identity{UserID: user.ID, Role: user.Role}
}

func boolPtr(v bool) *bool {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}

type recordedEvent struct {
	Type string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

type stubActivityRecorder struct {
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{ID: uint(len(s.entries)), Action: entry.Action}, nil
}

func (s *stubActivityRecorder) actions() []string {
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type invalidationSpy struct {
	surveyIDs []uint
}

func (s *invalidationSpy) Invalidate(_ context.Context, surveyID uint) {
	s.surveyIDs = append(s.surveyIDs, surveyID)
}

type surveyFixture struct {
	db          *gorm.DB
	surveys     repository.SurveyRepository
	submissions repository.SubmissionRepository
	teacher     models.User
	student     models.User
	activity    *stubActivityRecorder
	publisher   *recordingPublisher
	invalidated *invalidationSpy
	service     SurveyService
}

func newSurveyFixture(t *testing.T) surveyFixture {
	t.Helper()
	db := setupServiceDB(t)
	fixture := surveyFixture{
		db:          db,
		surveys:     repository.NewSurveyRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		teacher:     seedUser(t, db, "teacher", models.RoleTeacher, ""),
		student:     seedUser(t, db, "student", models.RoleStudent, "1234567"),
		activity:    &stubActivityRecorder{},
		publisher:   &recordingPublisher{},
		invalidated: &invalidationSpy{},
	}
	fixture.service = NewSurveyService(
		fixture.surveys,
		fixture.submissions,
		fixture.activity,
		fixture.publisher,
		fixture.invalidated,
		newTestValidator(),
		testLogger(),
	)
	return fixture
}

func quizPayload() dto.SurveyContentRequest {
	return dto.SurveyContentRequest{
		Title: "Quiz",
		Questions: []dto.QuestionInput{
			{Text: "Pick one", Type: models.QuestionTypeSingle, Options: []string{"A", "B"}},
			{Text: "Why?", Type: models.QuestionTypeText},
		},
	}
}
