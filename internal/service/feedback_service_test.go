package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/repository"
)

type feedbackFixture struct {
	teacher   models.User
	student   models.User
	activity  *stubActivityRecorder
	publisher *recordingPublisher
	service   FeedbackService
}

func newFeedbackFixture(t *testing.T) feedbackFixture {
	t.Helper()
	db := setupServiceDB(t)
	f := feedbackFixture{
		teacher:   seedUser(t, db, "teacher", models.RoleTeacher, ""),
		student:   seedUser(t, db, "student", models.RoleStudent, "1234567"),
		activity:  &stubActivityRecorder{},
		publisher: &recordingPublisher{},
	}
	f.service = NewFeedbackService(repository.NewFeedbackRepository(db), f.activity, f.publisher, newTestValidator(), testLogger())
	return f
}

func TestFeedbackServiceReplyMarksRead(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, identityOf(f.student), dto.FeedbackCreateRequest{Content: "<script>x</script>The quiz was too long"})
	require.NoError(t, err)
	require.Equal(t, "The quiz was too long", created.Content)
	require.Equal(t, models.FeedbackStatusUnread, created.Status)

	replied, err := f.service.Reply(ctx, identityOf(f.teacher), created.ID, dto.FeedbackReplyRequest{Reply: "Noted, thanks"})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusRead, replied.Status)
	require.Len(t, replied.Replies, 1)
	require.Equal(t, "Noted, thanks", replied.Replies[0].Content)
	require.Equal(t, f.teacher.ID, replied.Replies[0].TeacherID)

	require.Equal(t, []string{ActionFeedbackReplied}, f.activity.actions())
	require.Equal(t, []string{events.TypeFeedbackReplied}, f.publisher.types())

	own, err := f.service.ListOwn(ctx, identityOf(f.student))
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Len(t, own[0].Replies, 1)
}

func TestFeedbackServiceRoleChecks(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, identityOf(f.teacher), dto.FeedbackCreateRequest{Content: "hi"})
	require.ErrorIs(t, err, ErrStudentOnly)
	_, err = f.service.ListAll(ctx, identityOf(f.student))
	require.ErrorIs(t, err, ErrTeacherOnly)
	_, err = f.service.Reply(ctx, identityOf(f.student), 1, dto.FeedbackReplyRequest{Reply: "hi"})
	require.ErrorIs(t, err, ErrTeacherOnly)
	_, err = f.service.MarkRead(ctx, identityOf(f.student), 1)
	require.ErrorIs(t, err, ErrTeacherOnly)
}

func TestFeedbackServiceRejectsEmptyAndMissing(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, identityOf(f.student), dto.FeedbackCreateRequest{Content: "<b></b>"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Reply(ctx, identityOf(f.teacher), 999, dto.FeedbackReplyRequest{Reply: "hello"})
	require.ErrorIs(t, err, ErrFeedbackNotFound)
	require.Empty(t, f.publisher.types())

	_, err = f.service.MarkRead(ctx, identityOf(f.teacher), 999)
	require.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestFeedbackServiceMarkReadAndListAll(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, identityOf(f.student), dto.FeedbackCreateRequest{Content: "More time please"})
	require.NoError(t, err)

	read, err := f.service.MarkRead(ctx, identityOf(f.teacher), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusRead, read.Status)

	all, err := f.service.ListAll(ctx, identityOf(f.teacher))
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "student", all[0].Student)
}
