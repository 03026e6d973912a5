package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultServerURL is the web host used when GITHUB_SERVER_URL is unset
const DefaultServerURL = "https://github.com"

// ErrCheckRunUpdate is wrapped by every failed check run update, whichever
// layer reports it
var ErrCheckRunUpdate = errors.New("failed to update check run")

// WorkflowRunContext identifies the workflow run and job a check belongs to
type WorkflowRunContext struct {
	Owner      string
	Repo       string
	RunID      int64
	Job        string
	RunAttempt int64
	Workflow   string
	ServerURL  string
}

// RunURL is the overview page of the workflow run
func (r WorkflowRunContext) RunURL() string {
	server := strings.TrimSuffix(r.ServerURL, "/")
	if server == "" {
		server = DefaultServerURL
	}
	return fmt.Sprintf("%s/%s/%s/actions/runs/%d", server, r.Owner, r.Repo, r.RunID)
}

// JobDescriptor is one entry of a workflow run's job list
type JobDescriptor struct {
	ID   int64
	Name string
	// RunAttempt is zero when the API did not report one
	RunAttempt int64
	HTMLURL    string
}

type CheckStatus string

const (
	CheckStatusInProgress CheckStatus = "in_progress"
	CheckStatusCompleted  CheckStatus = "completed"
)

type Conclusion string

const (
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
)

// CheckOutput is the title and markdown summary shown on the check page
type CheckOutput struct {
	Title   string
	Summary string
}

// CheckUpdate is the payload sent when a check run changes state
type CheckUpdate struct {
	Status      CheckStatus
	Conclusion  Conclusion
	StartedAt   *time.Time
	CompletedAt *time.Time
	DetailsURL  string
	Output      *CheckOutput
}
