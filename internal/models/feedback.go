package models

import (
	"strings"
	"time"
)

// Feedback types.
const (
	FeedbackAutomatic          = "AUTOMATIC"
	FeedbackManual             = "MANUAL"
	FeedbackManualUnreferenced = "MANUAL_UNREFERENCED"
)

// StaticCodeAnalysisIdentifier prefixes the text of static analysis feedback entries.
const StaticCodeAnalysisIdentifier = "SCAFeedbackIdentifier:"

// Feedback is a single graded observation owned by exactly one result. The
// Ordinal column keeps the display order stable across duplicate deliveries.
type Feedback struct {
	ID                         uint      `gorm:"primaryKey" json:"id"`
	ResultID                   uint      `gorm:"not null;index" json:"result_id"`
	Ordinal                    int       `gorm:"not null;default:0" json:"ordinal"`
	Type                       string    `gorm:"size:32;not null" json:"type"`
	Text                       string    `gorm:"size:500" json:"text"`
	DetailText                 string    `gorm:"size:5000" json:"detail_text"`
	Credits                    *float64  `json:"credits"`
	Positive                   *bool     `json:"positive"`
	Visibility                 string    `gorm:"size:32" json:"visibility"`
	StaticCodeAnalysisCategory string    `gorm:"size:128" json:"static_code_analysis_category,omitempty"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// IsStaticCodeAnalysis reports whether the feedback came from a static analysis tool.
func (f Feedback) IsStaticCodeAnalysis() bool {
	return strings.HasPrefix(f.Text, StaticCodeAnalysisIdentifier) || f.StaticCodeAnalysisCategory != ""
}

// IsPositive reports whether the feedback marks a passed check.
func (f Feedback) IsPositive() bool {
	return f.Positive != nil && *f.Positive
}
