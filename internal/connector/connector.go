// Package connector defines the boundary to the version control system, the
// continuous integration service and the repository access control. The core
// only ever sees the normalized types below; translating a vendor's webhook
// payload into them is the job of the concrete connector implementation.
package connector

import (
	"context"
	"time"
)

// PushEvent is a normalized VCS push notification.
type PushEvent struct {
	ParticipationID uint
	CommitHash      string
	AuthorName      string
	AuthorEmail     string
	CommitMessage   string
	Branch          string
	Timestamp       time.Time
}

// TestResult is a single test case outcome inside a build notification.
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// AnalysisIssue is one static code analysis finding inside a build notification.
type AnalysisIssue struct {
	Category string
	Message  string
}

// BuildNotification is a normalized CI build-result notification. Vendor
// connectors (Bamboo, Jenkins, ...) translate their payloads into this shape.
type BuildNotification struct {
	PlanKey        string
	CommitHash     string
	BuildFailed    bool
	CompletedAt    time.Time
	TestResults    []TestResult
	AnalysisIssues []AnalysisIssue
	BuildLogLines  []string
}

// VersionControl is the read side of the VCS connector.
type VersionControl interface {
	// LastCommitHash returns the current HEAD of the given repository.
	LastCommitHash(ctx context.Context, repositorySlug string) (string, error)
}

// ContinuousIntegration triggers and manages CI build plans.
type ContinuousIntegration interface {
	TriggerBuild(ctx context.Context, buildPlanKey string) error
	CopyBuildPlan(ctx context.Context, sourceKey, targetKey string) error
	DeleteBuildPlan(ctx context.Context, buildPlanKey string) error
}

// RepositoryAccess controls student write access to exercise repositories.
type RepositoryAccess interface {
	SetPermissionsToReadOnly(ctx context.Context, repositorySlug string) error
	Unlock(ctx context.Context, repositorySlug string) error
	// CombineTemplateCommits squashes the template repository history into a
	// single commit before students can see it.
	CombineTemplateCommits(ctx context.Context, repositorySlug string) error
}
