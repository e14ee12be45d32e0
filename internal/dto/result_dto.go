package dto

import (
	"time"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// FeedbackResponse is the API view of one feedback entry.
type FeedbackResponse struct {
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	DetailText string   `json:"detail_text,omitempty"`
	Credits    *float64 `json:"credits,omitempty"`
	Positive   *bool    `json:"positive,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
}

// ResultResponse is the API view of a graded result.
type ResultResponse struct {
	ID              uint               `json:"id"`
	SubmissionID    uint               `json:"submission_id"`
	ParticipationID uint               `json:"participation_id"`
	AssessmentType  string             `json:"assessment_type"`
	Score           int                `json:"score"`
	Successful      bool               `json:"successful"`
	ResultString    string             `json:"result_string"`
	Rated           bool               `json:"rated"`
	CompletionDate  *time.Time         `json:"completion_date,omitempty"`
	Feedbacks       []FeedbackResponse `json:"feedbacks"`
}

// SubmissionResponse is the API view of a submission and its result, if any.
type SubmissionResponse struct {
	ID              uint            `json:"id"`
	ParticipationID uint            `json:"participation_id"`
	CommitHash      string          `json:"commit_hash"`
	Type            string          `json:"type"`
	SubmissionDate  time.Time       `json:"submission_date"`
	Submitted       bool            `json:"submitted"`
	BuildFailed     bool            `json:"build_failed"`
	Result          *ResultResponse `json:"result,omitempty"`
}

// NewFeedbackResponse maps a feedback model into its API view.
func NewFeedbackResponse(feedback models.Feedback) FeedbackResponse {
	return FeedbackResponse{
		Type:       feedback.Type,
		Text:       feedback.Text,
		DetailText: feedback.DetailText,
		Credits:    feedback.Credits,
		Positive:   feedback.Positive,
		Visibility: feedback.Visibility,
	}
}

// NewResultResponse maps a result model into its API view.
func NewResultResponse(result models.Result) ResultResponse {
	feedbacks := make([]FeedbackResponse, 0, len(result.Feedbacks))
	for _, feedback := range result.Feedbacks {
		feedbacks = append(feedbacks, NewFeedbackResponse(feedback))
	}
	return ResultResponse{
		ID:              result.ID,
		SubmissionID:    result.SubmissionID,
		ParticipationID: result.ParticipationID,
		AssessmentType:  result.AssessmentType,
		Score:           result.Score,
		Successful:      result.Successful,
		ResultString:    result.ResultString,
		Rated:           result.Rated,
		CompletionDate:  result.CompletionDate,
		Feedbacks:       feedbacks,
	}
}

// NewSubmissionResponse maps a submission model into its API view.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              submission.ID,
		ParticipationID: submission.ParticipationID,
		CommitHash:      submission.CommitHash,
		Type:            submission.Type,
		SubmissionDate:  submission.SubmissionDate,
		Submitted:       submission.Submitted,
		BuildFailed:     submission.BuildFailed,
	}
	if submission.Result != nil {
		result := NewResultResponse(*submission.Result)
		response.Result = &result
	}
	return response
}
