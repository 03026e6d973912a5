package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

// DefaultOutputTitle is the check output title used on completion
const DefaultOutputTitle = "E2E Tests"

var (
	ErrCheckRunIDMissing = errors.New("CHECK_RUN_ID is missing")
	ErrCheckRunIDInvalid = errors.New("CHECK_RUN_ID must be a positive integer")
	ErrCheckRunUpdate    = models.ErrCheckRunUpdate
)

// URLResolver returns the details URL for a run's current job
type URLResolver interface {
	Resolve(ctx context.Context, run models.WorkflowRunContext) (string, error)
}

// CheckUpdater applies a status change to an existing check run
type CheckUpdater interface {
	UpdateCheckRun(ctx context.Context, owner, repo string, checkRunID int64, update models.CheckUpdate) error
}

// Completion carries the inputs that only exist once the job has finished
type Completion struct {
	JobStatus  string
	Project    string
	PreviewURL string
}

type Reporter struct {
	resolver    URLResolver
	checks      CheckUpdater
	logger      *log.Logger
	now         func() time.Time
	outputTitle string
}

type Option func(*Reporter)

func WithLogger(logger *log.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

func WithOutputTitle(title string) Option {
	return func(r *Reporter) {
		if title != "" {
			r.outputTitle = title
		}
	}
}

func New(resolver URLResolver, checks CheckUpdater, opts ...Option) *Reporter {
	r := &Reporter{
		resolver:    resolver,
		checks:      checks,
		logger:      log.New(io.Discard),
		now:         time.Now,
		outputTitle: DefaultOutputTitle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseCheckRunID validates the raw check run id from the environment
func ParseCheckRunID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrCheckRunIDMissing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrCheckRunIDInvalid, raw)
	}
	return id, nil
}

// MarkInProgress points the check at the running job and flips it to in_progress
func (r *Reporter) MarkInProgress(ctx context.Context, run models.WorkflowRunContext, checkRunID int64) error {
	if checkRunID <= 0 {
		return ErrCheckRunIDMissing
	}

	detailsURL, err := r.resolver.Resolve(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to resolve job URL: %w", err)
	}

	startedAt := r.now().UTC()
	update := models.CheckUpdate{
		Status:     models.CheckStatusInProgress,
		StartedAt:  &startedAt,
		DetailsURL: detailsURL,
	}

	return r.update(ctx, run, checkRunID, update)
}

// MarkCompleted closes the check with a conclusion derived from the job status
func (r *Reporter) MarkCompleted(ctx context.Context, run models.WorkflowRunContext, checkRunID int64, c Completion) error {
	if checkRunID <= 0 {
		return ErrCheckRunIDMissing
	}

	detailsURL, err := r.resolver.Resolve(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to resolve job URL: %w", err)
	}

	completedAt := r.now().UTC()
	update := models.CheckUpdate{
		Status:      models.CheckStatusCompleted,
		Conclusion:  ConclusionFor(c.JobStatus),
		CompletedAt: &completedAt,
		DetailsURL:  detailsURL,
		Output: &models.CheckOutput{
			Title:   r.outputTitle,
			Summary: Summary(run, c.Project, c.PreviewURL),
		},
	}

	return r.update(ctx, run, checkRunID, update)
}

func (r *Reporter) update(ctx context.Context, run models.WorkflowRunContext, checkRunID int64, update models.CheckUpdate) error {
	if err := r.checks.UpdateCheckRun(ctx, run.Owner, run.Repo, checkRunID, update); err != nil {
		r.logger.Error("check run update failed", "check_run_id", checkRunID, "status", update.Status, "error", err)
		if errors.Is(err, ErrCheckRunUpdate) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCheckRunUpdate, err)
	}

	r.logger.Info("check run updated",
		"check_run_id", checkRunID,
		"status", update.Status,
		"conclusion", update.Conclusion,
		"details_url", update.DetailsURL,
	)
	return nil
}

// ConclusionFor maps a job status string to a check conclusion
func ConclusionFor(jobStatus string) models.Conclusion {
	if strings.EqualFold(jobStatus, "success") {
		return models.ConclusionSuccess
	}
	return models.ConclusionFailure
}

// ArtifactName is the name the e2e job uploads its report under
func ArtifactName(project string) string {
	return project + "-playwright-report"
}

// Summary renders the markdown shown in the completed check's output
func Summary(run models.WorkflowRunContext, project, previewURL string) string {
	lines := []string{
		"**Workflow:** " + run.Workflow,
		"**Job:** " + run.Job,
		"**Run:** " + run.RunURL(),
		"**Project:** " + project,
		"**Preview URL:** " + previewURL,
		"**Report Artifact:** " + ArtifactName(project),
	}
	return strings.Join(lines, "\n")
}
