package dto

import (
	"time"

	"github.com/noah-isme/gradia-go-api/internal/connector"
)

// PushWebhookRequest is the normalized body posted by the VCS connector when a
// commit is pushed.
type PushWebhookRequest struct {
	CommitHash    string    `json:"commit_hash" validate:"required,min=7,max=64"`
	AuthorName    string    `json:"author_name" validate:"required"`
	AuthorEmail   string    `json:"author_email" validate:"omitempty,email"`
	CommitMessage string    `json:"commit_message"`
	Branch        string    `json:"branch"`
	Timestamp     time.Time `json:"timestamp"`
}

// TestResultPayload is one test outcome inside a CI build notification.
type TestResultPayload struct {
	Name    string `json:"name" validate:"required"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// AnalysisIssuePayload is one static analysis finding inside a CI build notification.
type AnalysisIssuePayload struct {
	Category string `json:"category" validate:"required"`
	Message  string `json:"message"`
}

// BuildResultWebhookRequest is the normalized body posted by the CI connector
// when a build completes.
type BuildResultWebhookRequest struct {
	CommitHash     string                 `json:"commit_hash" validate:"omitempty,min=7,max=64"`
	BuildFailed    bool                   `json:"build_failed"`
	CompletedAt    time.Time              `json:"completed_at"`
	TestResults    []TestResultPayload    `json:"test_results" validate:"dive"`
	AnalysisIssues []AnalysisIssuePayload `json:"analysis_issues" validate:"dive"`
	BuildLogLines  []string               `json:"build_log_lines"`
}

// ToNotification converts the webhook body into the connector's build notification.
func (r BuildResultWebhookRequest) ToNotification(planKey string) connector.BuildNotification {
	notification := connector.BuildNotification{
		PlanKey:       planKey,
		CommitHash:    r.CommitHash,
		BuildFailed:   r.BuildFailed,
		CompletedAt:   r.CompletedAt,
		BuildLogLines: r.BuildLogLines,
	}
	for _, test := range r.TestResults {
		notification.TestResults = append(notification.TestResults, connector.TestResult{
			Name:    test.Name,
			Passed:  test.Passed,
			Message: test.Message,
		})
	}
	for _, issue := range r.AnalysisIssues {
		notification.AnalysisIssues = append(notification.AnalysisIssues, connector.AnalysisIssue{
			Category: issue.Category,
			Message:  issue.Message,
		})
	}
	return notification
}

// ToPushEvent converts the webhook body into the connector's push event.
func (r PushWebhookRequest) ToPushEvent(participationID uint) connector.PushEvent {
	timestamp := r.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return connector.PushEvent{
		ParticipationID: participationID,
		CommitHash:      r.CommitHash,
		AuthorName:      r.AuthorName,
		AuthorEmail:     r.AuthorEmail,
		CommitMessage:   r.CommitMessage,
		Branch:          r.Branch,
		Timestamp:       timestamp,
	}
}
