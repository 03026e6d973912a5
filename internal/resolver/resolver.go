package resolver

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

const (
	// DefaultAttempts is how many times the job list is fetched before falling back
	DefaultAttempts = 5
	// DefaultDelay is the wait between two fetches
	DefaultDelay    = time.Second

	// LatestFilter restricts a job listing to the most recent run attempt
	LatestFilter = "latest"
)

// errJobNotListed marks an attempt that found no usable job entry
var errJobNotListed = errors.New("job not listed yet")

// JobLister lists the jobs of a workflow run
type JobLister interface {
	ListJobsForRun(ctx context.Context, owner, repo string, runID int64, filter string) ([]models.JobDescriptor, error)
}

// Resolver finds the details page of the job that is currently running.
// The jobs API can lag behind the job itself, so it polls a few times
// before settling for the run overview page.
type Resolver struct {
	lister   JobLister
	logger   *log.Logger
	attempts int
	delay    time.Duration
	timer    backoff.Timer
}

// Option configures a Resolver
type Option func(*Resolver)

// WithAttempts sets the number of listing calls; values below 1 are ignored
func WithAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithDelay sets the wait between attempts; negative values are ignored
func WithDelay(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithLogger sets the logger; nil keeps the discarding default
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimer replaces the wall-clock timer used between attempts
func WithTimer(t backoff.Timer) Option {
	return func(r *Resolver) {
		r.timer = t
	}
}

// New creates a Resolver with the default attempts and delay
func New(lister JobLister, opts ...Option) *Resolver {
	r := &Resolver{
		lister:   lister,
		logger:   log.New(io.Discard),
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attempts returns the configured number of listing calls
func (r *Resolver) Attempts() int {
	return r.attempts
}

// Delay returns the configured wait between attempts
func (r *Resolver) Delay() time.Duration {
	return r.delay
}

// Resolve returns the HTML URL of run.Job, or the run overview URL when the
// job never shows up. Listing errors are returned as-is and are not retried.
func (r *Resolver) Resolve(ctx context.Context, run models.WorkflowRunContext) (string, error) {
	var (
		url     string
		attempt int
	)

	poll := func() error {
		attempt++
		jobs, err := r.lister.ListJobsForRun(ctx, run.Owner, run.Repo, run.RunID, LatestFilter)
		if err != nil {
			return backoff.Permanent(err)
		}

		match, ok := MatchJob(jobs, run.Job, run.RunAttempt)
		if ok && match.HTMLURL != "" {
			r.logger.Info("matched job", "job", run.Job, "id", match.ID, "attempt", attempt)
			url = match.HTMLURL
			return nil
		}

		r.logger.Debug("job not listed", "job", run.Job, "attempt", attempt, "listed", len(jobs))
		return errJobNotListed
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.attempts-1)),
		ctx,
	)

	err := backoff.RetryNotifyWithTimer(poll, policy, nil, r.timer)
	switch {
	case err == nil:
		return url, nil
	case errors.Is(err, errJobNotListed):
		fallback := run.RunURL()
		r.logger.Warn("job not found, using run URL", "job", run.Job, "attempts", attempt, "url", fallback)
		return fallback, nil
	default:
		return "", err
	}
}

// MatchJob picks the entry for name, preferring one from the given run
// attempt. Entries without an attempt count as matching any attempt.
func MatchJob(jobs []models.JobDescriptor, name string, runAttempt int64) (models.JobDescriptor, bool) {
	for _, j := range jobs {
		if j.Name == name && (j.RunAttempt == 0 || j.RunAttempt == runAttempt) {
			return j, true
		}
	}
	for _, j := range jobs {
		if j.Name == name {
			return j, true
		}
	}
	return models.JobDescriptor{}, false
}
