package models

import "time"

// Scheduled task kinds fired around the exercise due date.
const (
	TaskLock           = "LOCK"
	TaskUnlock         = "UNLOCK"
	TaskTriggerBuild   = "TRIGGER_BUILD"
	TaskRescore        = "RESCORE"
	TaskCombineCommits = "COMBINE_COMMITS"
)

// ScheduledTask is the durable projection of a pending due-date timer. Timers
// are rebuilt from these rows on startup; the generation token invalidates
// stale in-flight timers after a reschedule.
type ScheduledTask struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ExerciseID      uint       `gorm:"not null;index" json:"exercise_id"`
	ParticipationID *uint      `gorm:"index" json:"participation_id"`
	Kind            string     `gorm:"size:32;not null" json:"kind"`
	FireAt          time.Time  `gorm:"not null" json:"fire_at"`
	Generation      uint64     `gorm:"not null" json:"generation"`
	FiredAt         *time.Time `json:"fired_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsDue reports whether the task should fire at the given reference time.
func (t ScheduledTask) IsDue(reference time.Time) bool {
	return t.FiredAt == nil && !reference.Before(t.FireAt)
}
