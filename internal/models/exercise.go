package models

import "time"

// Exercise holds the scoring configuration and lifecycle dates of a programming exercise.
type Exercise struct {
	ID                           uint       `gorm:"primaryKey" json:"id"`
	Title                        string     `gorm:"size:255;not null" json:"title"`
	MaxScore                     float64    `gorm:"not null" json:"max_score"`
	MaxBonusPoints               float64    `gorm:"default:0" json:"max_bonus_points"`
	ReleaseDate                  *time.Time `json:"release_date"`
	DueDate                      *time.Time `json:"due_date"`
	BuildAndTestAfterDueDate     *time.Time `json:"build_and_test_after_due_date"`
	TestCasesChanged             bool       `gorm:"default:false" json:"test_cases_changed"`
	StaticCodeAnalysisEnabled    bool       `gorm:"default:false" json:"static_code_analysis_enabled"`
	MaxStaticCodeAnalysisPenalty *float64   `json:"max_static_code_analysis_penalty"`
	ScheduleGeneration           uint64     `gorm:"default:0" json:"-"`
	CreatedAt                    time.Time  `json:"created_at"`
	UpdatedAt                    time.Time  `json:"updated_at"`
	TestCases                    []TestCase `json:"test_cases,omitempty"`
}

// IsBeforeDueDate reports whether the exercise due date has not yet passed.
func (e Exercise) IsBeforeDueDate(reference time.Time) bool {
	return e.DueDate != nil && reference.Before(*e.DueDate)
}

// MaxAchievablePercent returns the score ceiling as a percentage of the max score.
func (e Exercise) MaxAchievablePercent() float64 {
	if e.MaxScore <= 0 {
		return 0
	}
	return (e.MaxScore + e.MaxBonusPoints) / e.MaxScore * 100
}
