package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Exercise{},
		&models.TestCase{},
		&models.Participation{},
		&models.Submission{},
		&models.Result{},
		&models.Feedback{},
		&models.ScheduledTask{},
		&models.AnalysisCategory{},
	))
	return db
}
