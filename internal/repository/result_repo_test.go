package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

func TestResultRepositoryReplaceFeedbackCreatesResult(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	submission := models.Submission{ParticipationID: 1, CommitHash: "abc", Type: models.SubmissionTypeManual, SubmissionDate: time.Now(), Submitted: true}
	require.NoError(t, db.Create(&submission).Error)

	result := models.Result{SubmissionID: submission.ID, ParticipationID: 1, Score: 50, ResultString: "1 of 2 passed"}
	feedbacks := []models.Feedback{
		{Type: models.FeedbackAutomatic, Text: "testSort"},
		{Type: models.FeedbackAutomatic, Text: "testMerge"},
	}
	require.NoError(t, repo.ReplaceFeedback(context.Background(), &result, feedbacks))
	require.NotZero(t, result.ID)

	stored, err := repo.GetByID(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, stored.Feedbacks, 2)
	require.Equal(t, result.ID, stored.Feedbacks[0].ResultID)
	require.Equal(t, 0, stored.Feedbacks[0].Ordinal)
	require.Equal(t, 1, stored.Feedbacks[1].Ordinal)
}

func TestResultRepositoryReplaceFeedbackSwapsInPlace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	submission := models.Submission{ParticipationID: 1, CommitHash: "abc", Type: models.SubmissionTypeManual, SubmissionDate: time.Now(), Submitted: true}
	require.NoError(t, db.Create(&submission).Error)

	result := models.Result{SubmissionID: submission.ID, ParticipationID: 1, Score: 50}
	require.NoError(t, repo.ReplaceFeedback(context.Background(), &result, []models.Feedback{
		{Type: models.FeedbackAutomatic, Text: "testSort"},
	}))
	originalID := result.ID

	result.Score = 100
	require.NoError(t, repo.ReplaceFeedback(context.Background(), &result, []models.Feedback{
		{Type: models.FeedbackManual, Text: "style"},
		{Type: models.FeedbackAutomatic, Text: "testSort"},
	}))
	require.Equal(t, originalID, result.ID)

	stored, err := repo.GetByID(context.Background(), originalID)
	require.NoError(t, err)
	require.Equal(t, 100, stored.Score)
	require.Len(t, stored.Feedbacks, 2)
	require.Equal(t, "style", stored.Feedbacks[0].Text)

	var count int64
	require.NoError(t, db.Model(&models.Feedback{}).Count(&count).Error)
	require.Equal(t, int64(2), count, "old feedback rows must be gone")
}

func TestResultRepositoryListLatestByExercise(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	exercise := models.Exercise{ID: 7, Title: "Sorting", MaxScore: 100}
	require.NoError(t, db.Create(&exercise).Error)
	p1 := models.Participation{ID: 1, ExerciseID: 7, Kind: models.ParticipationKindStudent, RepositorySlug: "c/s1", BuildPlanKey: "P1"}
	p2 := models.Participation{ID: 2, ExerciseID: 7, Kind: models.ParticipationKindStudent, RepositorySlug: "c/s2", BuildPlanKey: "P2"}
	outside := models.Participation{ID: 3, ExerciseID: 8, Kind: models.ParticipationKindStudent, RepositorySlug: "c/s3", BuildPlanKey: "P3"}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)
	require.NoError(t, db.Create(&models.Exercise{ID: 8, Title: "Other", MaxScore: 100}).Error)
	require.NoError(t, db.Create(&outside).Error)

	sub := func(participationID uint, commit string) uint {
		submission := models.Submission{ParticipationID: participationID, CommitHash: commit, Type: models.SubmissionTypeManual, SubmissionDate: time.Now(), Submitted: true}
		require.NoError(t, db.Create(&submission).Error)
		return submission.ID
	}
	require.NoError(t, db.Create(&models.Result{SubmissionID: sub(1, "a1"), ParticipationID: 1, Score: 10}).Error)
	require.NoError(t, db.Create(&models.Result{SubmissionID: sub(1, "a2"), ParticipationID: 1, Score: 90}).Error)
	require.NoError(t, db.Create(&models.Result{SubmissionID: sub(2, "b1"), ParticipationID: 2, Score: 40}).Error)
	require.NoError(t, db.Create(&models.Result{SubmissionID: sub(3, "c1"), ParticipationID: 3, Score: 70}).Error)

	latest, err := repo.ListLatestByExercise(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, uint(1), latest[0].ParticipationID)
	require.Equal(t, 90, latest[0].Score, "expected the newest result per participation")
	require.Equal(t, uint(2), latest[1].ParticipationID)
	require.Equal(t, 40, latest[1].Score)
}

func TestResultRepositoryGetLatestForParticipation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewResultRepository(db)

	submission := models.Submission{ParticipationID: 1, CommitHash: "a1", Type: models.SubmissionTypeManual, SubmissionDate: time.Now(), Submitted: true}
	require.NoError(t, db.Create(&submission).Error)
	newer := models.Submission{ParticipationID: 1, CommitHash: "a2", Type: models.SubmissionTypeManual, SubmissionDate: time.Now(), Submitted: true}
	require.NoError(t, db.Create(&newer).Error)
	require.NoError(t, db.Create(&models.Result{SubmissionID: submission.ID, ParticipationID: 1, Score: 10}).Error)
	latest := models.Result{SubmissionID: newer.ID, ParticipationID: 1, Score: 80}
	require.NoError(t, db.Create(&latest).Error)

	found, err := repo.GetLatestForParticipation(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, latest.ID, found.ID)
	require.Equal(t, 80, found.Score)
}
