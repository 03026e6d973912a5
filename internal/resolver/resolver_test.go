package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

type listCall struct {
	owner  string
	repo   string
	runID  int64
	filter string
}

// scriptedLister returns one response per call, repeating the last one
type scriptedLister struct {
	responses [][]models.JobDescriptor
	err       error
	calls     []listCall
}

func (s *scriptedLister) ListJobsForRun(_ context.Context, owner, repo string, runID int64, filter string) ([]models.JobDescriptor, error) {
	s.calls = append(s.calls, listCall{owner: owner, repo: repo, runID: runID, filter: filter})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, nil
	}
	i := len(s.calls) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

// fakeTimer fires immediately and records every requested wait
type fakeTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Time{}
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

func testRun() models.WorkflowRunContext {
	return models.WorkflowRunContext{
		Owner:      "acme",
		Repo:       "web",
		RunID:      42,
		Job:        "e2e",
		RunAttempt: 2,
		Workflow:   "Preview",
		ServerURL:  "https://github.com",
	}
}

func TestResolve_ExactMatchFirstAttempt(t *testing.T) {
	lister := &scriptedLister{responses: [][]models.JobDescriptor{{
		{ID: 1, Name: "build", RunAttempt: 2, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/1"},
		{ID: 2, Name: "e2e", RunAttempt: 2, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/2"},
	}}}
	timer := &fakeTimer{}

	url, err := New(lister, WithTimer(timer)).Resolve(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/web/actions/runs/42/job/2", url)
	assert.Len(t, lister.calls, 1)
	assert.Empty(t, timer.waits)
	assert.Equal(t, listCall{owner: "acme", repo: "web", runID: 42, filter: "latest"}, lister.calls[0])
}

func TestResolve_FallbackAfterAllAttempts(t *testing.T) {
	lister := &scriptedLister{responses: [][]models.JobDescriptor{{
		{ID: 1, Name: "build", RunAttempt: 2, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/1"},
	}}}
	timer := &fakeTimer{}

	url, err := New(lister, WithTimer(timer)).Resolve(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/web/actions/runs/42", url)
	assert.Len(t, lister.calls, DefaultAttempts)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, timer.waits)
}

func TestResolve_FallbackWithEmptyJobList(t *testing.T) {
	lister := &scriptedLister{}
	timer := &fakeTimer{}

	url, err := New(lister, WithTimer(timer), WithAttempts(3), WithDelay(250*time.Millisecond)).
		Resolve(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/web/actions/runs/42", url)
	assert.Len(t, lister.calls, 3)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, timer.waits)
}

func TestResolve_LaterExactMatchWins(t *testing.T) {
	lister := &scriptedLister{responses: [][]models.JobDescriptor{
		{
			{ID: 7, Name: "e2e", RunAttempt: 1, HTMLURL: ""},
		},
		{
			{ID: 7, Name: "e2e", RunAttempt: 1, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/7"},
			{ID: 9, Name: "e2e", RunAttempt: 2, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/9"},
		},
	}}
	timer := &fakeTimer{}

	url, err := New(lister, WithTimer(timer)).Resolve(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/web/actions/runs/42/job/9", url)
	assert.Len(t, lister.calls, 2)
	assert.Equal(t, []time.Duration{time.Second}, timer.waits)
}

func TestResolve_NameOnlyMatchWithURL(t *testing.T) {
	lister := &scriptedLister{responses: [][]models.JobDescriptor{{
		{ID: 3, Name: "e2e", RunAttempt: 1, HTMLURL: "https://github.com/acme/web/actions/runs/42/job/3"},
	}}}

	url, err := New(lister, WithTimer(&fakeTimer{})).Resolve(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/web/actions/runs/42/job/3", url)
	assert.Len(t, lister.calls, 1)
}

func TestResolve_ListErrorIsNotRetried(t *testing.T) {
	boom := errors.New("401 Bad credentials")
	lister := &scriptedLister{err: boom}
	timer := &fakeTimer{}

	url, err := New(lister, WithTimer(timer)).Resolve(context.Background(), testRun())
	require.Error(t, err)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, url)
	assert.Len(t, lister.calls, 1)
	assert.Empty(t, timer.waits)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lister := &scriptedLister{}
	_, err := New(lister, WithTimer(&fakeTimer{})).Resolve(ctx, testRun())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, lister.calls, 1)
}

func TestResolve_EnterpriseServerFallback(t *testing.T) {
	run := testRun()
	run.ServerURL = "https://ghe.example.com/"

	url, err := New(&scriptedLister{}, WithTimer(&fakeTimer{}), WithAttempts(1)).Resolve(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/acme/web/actions/runs/42", url)
}

func TestNew_IgnoresInvalidOptions(t *testing.T) {
	r := New(&scriptedLister{}, WithAttempts(0), WithDelay(-time.Second), WithLogger(nil))

	assert.Equal(t, DefaultAttempts, r.Attempts())
	assert.Equal(t, DefaultDelay, r.Delay())
}

func TestMatchJob(t *testing.T) {
	tests := []struct {
		name       string
		jobs       []models.JobDescriptor
		job        string
		runAttempt int64
		wantID     int64
		wantOK     bool
	}{
		{
			name:   "no jobs",
			job:    "e2e",
			wantOK: false,
		},
		{
			name: "exact match",
			jobs: []models.JobDescriptor{
				{ID: 1, Name: "e2e", RunAttempt: 3},
			},
			job:        "e2e",
			runAttempt: 3,
			wantID:     1,
			wantOK:     true,
		},
		{
			name: "missing attempt matches by default",
			jobs: []models.JobDescriptor{
				{ID: 1, Name: "e2e"},
			},
			job:        "e2e",
			runAttempt: 3,
			wantID:     1,
			wantOK:     true,
		},
		{
			name: "exact match outranks earlier name-only match",
			jobs: []models.JobDescriptor{
				{ID: 1, Name: "e2e", RunAttempt: 1},
				{ID: 2, Name: "e2e", RunAttempt: 2},
			},
			job:        "e2e",
			runAttempt: 2,
			wantID:     2,
			wantOK:     true,
		},
		{
			name: "name-only fallback",
			jobs: []models.JobDescriptor{
				{ID: 1, Name: "lint", RunAttempt: 2},
				{ID: 5, Name: "e2e", RunAttempt: 1},
			},
			job:        "e2e",
			runAttempt: 2,
			wantID:     5,
			wantOK:     true,
		},
		{
			name: "name is case sensitive",
			jobs: []models.JobDescriptor{
				{ID: 1, Name: "E2E", RunAttempt: 2},
			},
			job:        "e2e",
			runAttempt: 2,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchJob(tt.jobs, tt.job, tt.runAttempt)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}
