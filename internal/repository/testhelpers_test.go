package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/database"
	"github.com/noah-isme/questionnaire-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func createUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "hash", Role: role}
	if role == models.RoleStudent {
		number := fmt.Sprintf("%07d", len(username)*1000+int(username[0]))
		user.StudentNumber = &number
		user.RealName = strings.ToUpper(username[:1]) + username[1:]
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func sampleSurvey(teacherID uint, code string) models.Survey {
	return models.Survey{
		Title:     "Quiz",
		TeacherID: teacherID,
		IsActive:  true,
		Code:      code,
		Version:   1,
		Questions: []models.Question{
			{
				Text:     "Pick one",
				Type:     models.QuestionTypeSingle,
				Position: 1,
				Options: []models.Option{
					{Text: "A", Position: 1},
					{Text: "B", Position: 2},
				},
			},
			{Text: "Comment", Type: models.QuestionTypeText, Position: 2},
		},
	}
}
