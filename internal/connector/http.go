package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// GatewayConfig points the HTTP connector at the VCS/CI gateway service.
type GatewayConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// HTTPGateway talks to the VCS and CI services through their REST gateway. It
// implements VersionControl, ContinuousIntegration and RepositoryAccess.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPGateway constructs the gateway connector.
func NewHTTPGateway(cfg GatewayConfig, logger zerolog.Logger) (*HTTPGateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "gateway_connector").Logger(),
	}, nil
}

// LastCommitHash returns the HEAD commit of the repository's default branch.
func (g *HTTPGateway) LastCommitHash(ctx context.Context, repositorySlug string) (string, error) {
	var payload struct {
		CommitHash string `json:"commit_hash"`
	}
	path := fmt.Sprintf("/repositories/%s/head", url.PathEscape(repositorySlug))
	if err := g.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return "", fmt.Errorf("fetch head of %s: %w", repositorySlug, err)
	}
	return payload.CommitHash, nil
}

// TriggerBuild queues a run of the given build plan.
func (g *HTTPGateway) TriggerBuild(ctx context.Context, buildPlanKey string) error {
	path := fmt.Sprintf("/plans/%s/trigger", url.PathEscape(buildPlanKey))
	if err := g.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("trigger build %s: %w", buildPlanKey, err)
	}
	g.logger.Debug().Str("plan_key", buildPlanKey).Msg("build triggered")
	return nil
}

// CopyBuildPlan clones a build plan under a new key.
func (g *HTTPGateway) CopyBuildPlan(ctx context.Context, sourceKey, targetKey string) error {
	body := map[string]string{"target_key": targetKey}
	path := fmt.Sprintf("/plans/%s/copy", url.PathEscape(sourceKey))
	if err := g.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("copy build plan %s to %s: %w", sourceKey, targetKey, err)
	}
	return nil
}

// DeleteBuildPlan removes a build plan.
func (g *HTTPGateway) DeleteBuildPlan(ctx context.Context, buildPlanKey string) error {
	path := fmt.Sprintf("/plans/%s", url.PathEscape(buildPlanKey))
	if err := g.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete build plan %s: %w", buildPlanKey, err)
	}
	return nil
}

// SetPermissionsToReadOnly revokes student write access to the repository.
func (g *HTTPGateway) SetPermissionsToReadOnly(ctx context.Context, repositorySlug string) error {
	path := fmt.Sprintf("/repositories/%s/permissions/read-only", url.PathEscape(repositorySlug))
	if err := g.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("lock repository %s: %w", repositorySlug, err)
	}
	return nil
}

// Unlock restores student write access to the repository.
func (g *HTTPGateway) Unlock(ctx context.Context, repositorySlug string) error {
	path := fmt.Sprintf("/repositories/%s/permissions/write", url.PathEscape(repositorySlug))
	if err := g.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("unlock repository %s: %w", repositorySlug, err)
	}
	return nil
}

// CombineTemplateCommits squashes the template repository history into one commit.
func (g *HTTPGateway) CombineTemplateCommits(ctx context.Context, repositorySlug string) error {
	path := fmt.Sprintf("/repositories/%s/combine-commits", url.PathEscape(repositorySlug))
	if err := g.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("combine commits of %s: %w", repositorySlug, err)
	}
	return nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		request.Header.Set("Authorization", "Bearer "+g.token)
	}

	response, err := g.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("gateway returned status %d", response.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}
