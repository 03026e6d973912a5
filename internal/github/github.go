package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"golang.org/x/oauth2"

	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

const (
	DefaultTimeout = 30 * time.Second

	// DefaultAPIURL is the public GitHub REST endpoint
	DefaultAPIURL = "https://api.github.com"

	perPage = 100
)

var (
	ErrMissingToken    = errors.New("GITHUB_TOKEN environment variable must be set")
	ErrListJobs        = errors.New("failed to list workflow jobs")
	ErrInvalidAPIURL   = errors.New("invalid GitHub API URL")
	errEmptyRepository = errors.New("owner and repo must be set")
)

type Client struct {
	client  *github.Client
	timeout time.Duration
}

func NewClient(ctx context.Context, token, apiURL string) (*Client, error) {
	return NewClientWithTimeout(ctx, token, apiURL, DefaultTimeout)
}

// NewClientWithTimeout builds an authenticated client. An apiURL other than
// the public endpoint is treated as a GitHub Enterprise Server install.
func NewClientWithTimeout(ctx context.Context, token, apiURL string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = timeout

	gh := github.NewClient(httpClient)

	apiURL = strings.TrimSuffix(strings.TrimSpace(apiURL), "/")
	if apiURL != "" && apiURL != DefaultAPIURL {
		var err error
		gh, err = gh.WithEnterpriseURLs(apiURL+"/", apiURL+"/")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAPIURL, err)
		}
	}

	return &Client{client: gh, timeout: timeout}, nil
}

// ListJobsForRun returns every job of a workflow run, following pagination
func (c *Client) ListJobsForRun(ctx context.Context, owner, repo string, runID int64, filter string) ([]models.JobDescriptor, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: %w", ErrListJobs, errEmptyRepository)
	}

	opts := &github.ListWorkflowJobsOptions{
		Filter:      filter,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var jobs []models.JobDescriptor
	for {
		page, resp, err := c.client.Actions.ListWorkflowJobs(ctx, owner, repo, runID, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: run %d: %w", ErrListJobs, runID, err)
		}

		for _, j := range page.Jobs {
			jobs = append(jobs, toJobDescriptor(j))
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return jobs, nil
}

func toJobDescriptor(j *github.WorkflowJob) models.JobDescriptor {
	return models.JobDescriptor{
		ID:         j.GetID(),
		Name:       j.GetName(),
		RunAttempt: j.GetRunAttempt(),
		HTMLURL:    j.GetHTMLURL(),
	}
}

// checkRunPatch is the body of PATCH /repos/{owner}/{repo}/check-runs/{id}.
// go-github's UpdateCheckRunOptions always sends "name" and cannot carry
// started_at, so the request is built by hand.
type checkRunPatch struct {
	Status      string                 `json:"status,omitempty"`
	Conclusion  string                 `json:"conclusion,omitempty"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	DetailsURL  string                 `json:"details_url,omitempty"`
	Output      *github.CheckRunOutput `json:"output,omitempty"`
}

func newCheckRunPatch(update models.CheckUpdate) checkRunPatch {
	patch := checkRunPatch{
		Status:      string(update.Status),
		Conclusion:  string(update.Conclusion),
		StartedAt:   update.StartedAt,
		CompletedAt: update.CompletedAt,
		DetailsURL:  update.DetailsURL,
	}
	if update.Output != nil {
		patch.Output = &github.CheckRunOutput{
			Title:   github.String(update.Output.Title),
			Summary: github.String(update.Output.Summary),
		}
	}
	return patch
}

func (c *Client) UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, update models.CheckUpdate) error {
	if owner == "" || repo == "" {
		return fmt.Errorf("%w: %w", models.ErrCheckRunUpdate, errEmptyRepository)
	}

	u := fmt.Sprintf("repos/%s/%s/check-runs/%d", owner, repo, checkRunID)
	req, err := c.client.NewRequest(http.MethodPatch, u, newCheckRunPatch(update))
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrCheckRunUpdate, err)
	}

	checkRun := new(github.CheckRun)
	if _, err := c.client.Do(ctx, req, checkRun); err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: check run %d not found in %s/%s: %w", models.ErrCheckRunUpdate, checkRunID, owner, repo, err)
		}
		return fmt.Errorf("%w: check run %d: %w", models.ErrCheckRunUpdate, checkRunID, err)
	}

	return nil
}
