package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/config"
	"github.com/noah-isme/questionnaire-api/internal/database"
	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/handler"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/repository"
	"github.com/noah-isme/questionnaire-api/internal/router"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/pkg/linkcode"
)

const (
	testInviteCode = "staff"
	testCookieName = "qs_session"
	testPassword   = "secret1"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	redis *miniredis.Miniredis
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func newTestEnv(t *testing.T, loginLimit int) testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	cfg := config.Config{AppName: "Questionnaire Test", AppEnv: "test", PublicURL: "http://surveys.test"}

	users := repository.NewUserRepository(db)
	surveys := repository.NewSurveyRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	feedback := repository.NewFeedbackRepository(db)
	activity := repository.NewActivityLogRepository(db)
	publisher := events.NopPublisher{}

	authService := service.NewAuthService(users, redisClient, service.AuthConfig{
		Secret:            "handler-test-secret",
		TTL:               time.Hour,
		TeacherInviteCode: testInviteCode,
	}, validate, logger)
	activityService := service.NewActivityService(activity, validate, logger)
	statisticsService := service.NewStatisticsService(surveys, submissions, redisClient, time.Minute, logger)
	surveyService := service.NewSurveyService(surveys, submissions, activityService, publisher, statisticsService, validate, logger)
	submissionService := service.NewSubmissionService(surveys, submissions, statisticsService, publisher, logger)
	exportService := service.NewExportService(surveys, submissions, logger)
	accessService := service.NewAccessService(surveys, linkcode.NewEncoder(128), cfg.SurveyLink, logger)
	feedbackService := service.NewFeedbackService(feedback, activityService, publisher, validate, logger)
	dashboardService := service.NewDashboardService(surveyService, submissionService, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{
		Logger:            &logger,
		Verifier:          authService,
		SessionCookieName: testCookieName,
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
			CookieName:   testCookieName,
			LoginLimiter: middleware.RateLimit("login", loginLimit, time.Minute),
		}, logger),
		AccountHandler:       handler.NewAccountHandler(authService, dashboardService, logger),
		SurveyHandler:        handler.NewSurveyHandler(surveyService, statisticsService, exportService, accessService, submissionService, logger),
		StudentSurveyHandler: handler.NewStudentSurveyHandler(surveyService, submissionService, logger),
		FeedbackHandler:      handler.NewFeedbackHandler(feedbackService, logger),
		ActivityHandler:      handler.NewActivityHandler(activityService, logger),
		AccessHandler:        handler.NewAccessHandler(accessService, logger),
		DatabasePing:         sqlDB.PingContext,
	})

	return testEnv{app: app, db: db, redis: mr}
}

func (e testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e testEnv) registerTeacher(t *testing.T, username string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username:   username,
		Password:   testPassword,
		Role:       "teacher",
		InviteCode: testInviteCode,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return e.login(t, username)
}

func (e testEnv) registerStudent(t *testing.T, username, number string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username:      username,
		Password:      testPassword,
		Role:          "student",
		StudentNumber: number,
		RealName:      "Student " + username,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return e.login(t, username)
}

func (e testEnv) login(t *testing.T, username string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: username, Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session dto.SessionResponse
	decodeData(t, resp, &session)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func (e testEnv) createSurvey(t *testing.T, token string, payload dto.SurveyContentRequest) dto.SurveyResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/teacher/surveys", token, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var survey dto.SurveyResponse
	decodeData(t, resp, &survey)
	return survey
}

func quizPayload() dto.SurveyContentRequest {
	return dto.SurveyContentRequest{
		Title: "Quiz",
		Questions: []dto.QuestionInput{
			{Text: "Pick one", Type: "single", Options: []string{"A", "B"}},
			{Text: "Why?", Type: "text"},
		},
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success, body.Message)
	require.NoError(t, json.Unmarshal(body.Data, target))
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return data
}

func idPath(format string, id uint) string {
	return fmt.Sprintf(format, id)
}
