package models

import "time"

// Analysis category states. Only GRADED categories subtract points.
const (
	AnalysisCategoryGraded   = "GRADED"
	AnalysisCategoryFeedback = "FEEDBACK"
	AnalysisCategoryInactive = "INACTIVE"
)

// AnalysisCategory configures the score penalty of one static code analysis
// category for an exercise.
type AnalysisCategory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExerciseID uint      `gorm:"not null;uniqueIndex:idx_analysis_categories_exercise_name" json:"exercise_id"`
	Name       string    `gorm:"size:128;not null;uniqueIndex:idx_analysis_categories_exercise_name" json:"name"`
	State      string    `gorm:"size:32;not null;default:INACTIVE" json:"state"`
	Penalty    float64   `gorm:"default:0" json:"penalty"`
	MaxPenalty *float64  `json:"max_penalty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
