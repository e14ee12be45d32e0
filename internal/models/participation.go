package models

import "time"

// Participation kinds. Solution and template participations belong to the
// instructor-owned repositories; student participations carry the graded work.
const (
	ParticipationKindStudent  = "STUDENT"
	ParticipationKindSolution = "SOLUTION"
	ParticipationKindTemplate = "TEMPLATE"
)

// Participation binds one exercise to one repository and CI build plan.
type Participation struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ExerciseID        uint       `gorm:"not null;index" json:"exercise_id"`
	Kind              string     `gorm:"size:32;not null;default:STUDENT" json:"kind"`
	RepositorySlug    string     `gorm:"size:255;not null" json:"repository_slug"`
	BuildPlanKey      string     `gorm:"size:255;uniqueIndex" json:"build_plan_key"`
	IndividualDueDate *time.Time `json:"individual_due_date"`
	Locked            bool       `gorm:"default:false" json:"locked"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Exercise          Exercise   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsStudent reports whether the participation belongs to a student repository.
func (p Participation) IsStudent() bool {
	return p.Kind == ParticipationKindStudent
}

// EffectiveDueDate returns the individual due date when set, the exercise due date otherwise.
func (p Participation) EffectiveDueDate(exercise Exercise) *time.Time {
	if p.IndividualDueDate != nil {
		return p.IndividualDueDate
	}
	return exercise.DueDate
}
