package dto

import (
	"time"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// ExerciseScheduleRequest updates the due-date fields of an exercise. Explicit
// nulls clear the corresponding date and cancel its timers.
type ExerciseScheduleRequest struct {
	DueDate                  *time.Time `json:"due_date"`
	BuildAndTestAfterDueDate *time.Time `json:"build_and_test_after_due_date"`
	ReleaseDate              *time.Time `json:"release_date"`
}

// ScheduledTaskResponse is the API view of one pending due-date timer.
type ScheduledTaskResponse struct {
	ID              uint      `json:"id"`
	ExerciseID      uint      `json:"exercise_id"`
	ParticipationID *uint     `json:"participation_id,omitempty"`
	Kind            string    `json:"kind"`
	FireAt          time.Time `json:"fire_at"`
	Generation      uint64    `json:"generation"`
}

// NewScheduledTaskResponses maps scheduled task models into their API view.
func NewScheduledTaskResponses(tasks []models.ScheduledTask) []ScheduledTaskResponse {
	responses := make([]ScheduledTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, ScheduledTaskResponse{
			ID:              task.ID,
			ExerciseID:      task.ExerciseID,
			ParticipationID: task.ParticipationID,
			Kind:            task.Kind,
			FireAt:          task.FireAt,
			Generation:      task.Generation,
		})
	}
	return responses
}
