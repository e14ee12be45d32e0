package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission types. OTHER marks submissions synthesized for a build result that
// arrived without a matching push notification.
const (
	SubmissionTypeManual     = "MANUAL"
	SubmissionTypeInstructor = "INSTRUCTOR"
	SubmissionTypeTest       = "TEST"
	SubmissionTypeOther      = "OTHER"
)

// Submission records one commit pushed (or built) for a participation.
// A submission without a result is pending; the result linker resolves it
// when the matching build notification arrives.
type Submission struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ParticipationID uint           `gorm:"not null;index:idx_submissions_participation_commit" json:"participation_id"`
	CommitHash      string         `gorm:"size:64;index:idx_submissions_participation_commit" json:"commit_hash"`
	Type            string         `gorm:"size:32;not null" json:"type"`
	SubmissionDate  time.Time      `gorm:"not null" json:"submission_date"`
	Submitted       bool           `gorm:"default:false" json:"submitted"`
	BuildFailed     bool           `gorm:"default:false" json:"build_failed"`
	BuildLogs       datatypes.JSON `json:"build_logs,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Result          *Result        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"result,omitempty"`
}

// IsPending reports whether the submission still awaits a build result.
func (s Submission) IsPending() bool {
	return s.Submitted && s.Result == nil
}

// BelongsToTestRepository reports whether the submission originated from a test-repository push.
func (s Submission) BelongsToTestRepository() bool {
	return s.Type == SubmissionTypeTest
}
