package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionnaire-api/internal/dto"
)

func TestAuthHandlerRegistrationRules(t *testing.T) {
	env := newTestEnv(t, 50)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: "mrsmith", Password: testPassword, Role: "teacher", InviteCode: "wrong",
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: "al", Password: "123", Role: "student",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var failure envelope
	decodeResponse(t, resp, &failure)
	require.False(t, failure.Success)
	require.Contains(t, string(failure.Details), "Password")

	env.registerStudent(t, "alice", "2024001")
	resp = env.do(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Username: "alice", Password: testPassword, Role: "student", StudentNumber: "2024002", RealName: "A",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthHandlerLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t, 50)
	env.registerStudent(t, "alice", "2024001")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login?next=/api/v1/student/surveys", "", dto.LoginRequest{Username: "alice", Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)

	var session dto.SessionResponse
	decodeData(t, resp, &session)
	require.Equal(t, "/api/v1/student/surveys", session.Redirect)
	require.Equal(t, cookie.Value, session.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: cookie.Value})
	meResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me dto.UserResponse
	decodeData(t, meResp, &me)
	require.Equal(t, "alice", me.Username)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: "alice", Password: "nope-nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandlerLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t, 50)
	token := env.registerStudent(t, "alice", "2024001")

	resp := env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandlerLoginNoticeEchoesLocalNext(t *testing.T) {
	env := newTestEnv(t, 50)

	resp := env.do(t, http.MethodGet, "/api/v1/auth/login?next=/s/ABCD1234", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var data map[string]string
	decodeData(t, resp, &data)
	require.Equal(t, "/s/ABCD1234", data["next"])

	resp = env.do(t, http.MethodGet, "/api/v1/auth/login?next=https://evil.example", "", nil)
	decodeData(t, resp, &data)
	require.NotContains(t, data, "next")
}

func TestAuthHandlerRateLimitsLogin(t *testing.T) {
	env := newTestEnv(t, 2)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Username: "ghost", Password: "whatever"})
		statuses = append(statuses, resp.StatusCode)
	}
	require.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, statuses)
}

func TestAccountHandlerProfileAndDashboard(t *testing.T) {
	env := newTestEnv(t, 50)
	student := env.registerStudent(t, "alice", "2024001")
	teacher := env.registerTeacher(t, "mrsmith")

	resp := env.do(t, http.MethodPatch, "/api/v1/me/profile", student, dto.ProfileUpdateRequest{Field: "real_name", Value: "Alice Liddell", CurrentPassword: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user dto.UserResponse
	decodeData(t, resp, &user)
	require.Equal(t, "Alice Liddell", user.RealName)

	resp = env.do(t, http.MethodPatch, "/api/v1/me/profile", teacher, dto.ProfileUpdateRequest{Field: "real_name", Value: "X"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	env.createSurvey(t, teacher, quizPayload())

	resp = env.do(t, http.MethodGet, "/api/v1/dashboard", teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var teacherView dto.TeacherDashboardResponse
	decodeData(t, resp, &teacherView)
	require.Equal(t, "teacher", teacherView.Role)
	require.Len(t, teacherView.Surveys, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/dashboard", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var studentView dto.StudentDashboardResponse
	decodeData(t, resp, &studentView)
	require.Equal(t, "student", studentView.Role)
	require.Len(t, studentView.Surveys, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthHandlerReportsDatabase(t *testing.T) {
	env := newTestEnv(t, 50)

	resp := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Questionnaire Test", resp.Header.Get("X-Application"))

	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	decodeData(t, resp, &health)
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Database)

	metrics := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, metrics.StatusCode)
	require.True(t, strings.Contains(string(readBody(t, metrics)), "http_requests_total"))
}
