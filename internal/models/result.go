package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assessment types. Automatic results come from CI; a semi-automatic result is
// an automatic result that a tutor has extended with manual feedback.
const (
	AssessmentAutomatic     = "AUTOMATIC"
	AssessmentSemiAutomatic = "SEMI_AUTOMATIC"
	AssessmentManual        = "MANUAL"
)

// Result is the graded outcome of exactly one submission. Duplicate build
// deliveries update the row in place; a result is never deleted, only superseded.
type Result struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SubmissionID    uint           `gorm:"not null;index" json:"submission_id"`
	ParticipationID uint           `gorm:"not null;index" json:"participation_id"`
	AssessmentType  string         `gorm:"size:32;not null;default:AUTOMATIC" json:"assessment_type"`
	Score           int            `gorm:"default:0" json:"score"`
	Successful      bool           `gorm:"default:false" json:"successful"`
	ResultString    string         `gorm:"size:255" json:"result_string"`
	Rated           bool           `gorm:"default:true" json:"rated"`
	CompletionDate  *time.Time     `json:"completion_date"`
	RawPayload      datatypes.JSON `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Feedbacks       []Feedback     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"feedbacks,omitempty"`
}

// IsManual reports whether the result carries a manual or semi-automatic assessment.
func (r Result) IsManual() bool {
	return r.AssessmentType == AssessmentManual || r.AssessmentType == AssessmentSemiAutomatic
}

// AutomaticFeedbacks returns only the feedback entries produced by CI test runs.
func (r Result) AutomaticFeedbacks() []Feedback {
	automatic := make([]Feedback, 0, len(r.Feedbacks))
	for _, feedback := range r.Feedbacks {
		if feedback.Type == FeedbackAutomatic {
			automatic = append(automatic, feedback)
		}
	}
	return automatic
}
