package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionnaire-api/internal/models"
)

// Open connects to the relational store described by dsn. PostgreSQL URLs and
// key/value DSNs select the postgres driver, anything else is treated as an
// SQLite file path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn must not be empty")
	}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(sqliteDSN(dsn))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Models lists the tables owned by the service in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Survey{},
		&models.Question{},
		&models.Option{},
		&models.Submission{},
		&models.Answer{},
		&models.Feedback{},
		&models.FeedbackReply{},
		&models.ActivityLog{},
	}
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=")
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_foreign_keys=on&_busy_timeout=5000"
}
