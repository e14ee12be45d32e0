package models

import "time"

// Visibility controls when a test case is shown to students.
const (
	VisibilityAlways       = "ALWAYS"
	VisibilityAfterDueDate = "AFTER_DUE_DATE"
	VisibilityNever        = "NEVER"
)

// TestCase is a named automated check contributing to the score of an exercise.
// Test cases are derived from observed feedback names and are deactivated, never
// deleted, when a later run no longer reports them.
type TestCase struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExerciseID      uint      `gorm:"not null;uniqueIndex:idx_test_cases_exercise_name" json:"exercise_id"`
	Name            string    `gorm:"size:255;not null;uniqueIndex:idx_test_cases_exercise_name" json:"name"`
	Weight          float64   `gorm:"default:1" json:"weight"`
	BonusMultiplier float64   `gorm:"default:1" json:"bonus_multiplier"`
	BonusPoints     float64   `gorm:"default:0" json:"bonus_points"`
	Active          bool      `gorm:"default:true" json:"active"`
	Visibility      string    `gorm:"size:32;not null;default:ALWAYS" json:"visibility"`
	Type            string    `gorm:"size:32" json:"type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsInvisible reports whether the test case never counts toward student-visible scoring.
func (t TestCase) IsInvisible() bool {
	return t.Visibility == VisibilityNever
}

// IsAfterDueDate reports whether the test case is held back until the due date passes.
func (t TestCase) IsAfterDueDate() bool {
	return t.Visibility == VisibilityAfterDueDate
}
