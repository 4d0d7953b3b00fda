package upstream

import (
	"context"
	"time"
)

/* Client abstracts the CI/VCS provider REST API consumed by the resolver
 * and publisher. Small interface written for its users: listing gives no
 * ordering guarantee (the resolver sorts), check-run create/update are
 * the two halves of an idempotent upsert.
 */

// Repo identifies one repository at the provider.
type Repo struct {
	Owner string
	Name  string
}

// FullName returns the owner/name form used in API paths and logs.
func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// WorkflowRun is one candidate CI run for a commit, fetched fresh per
// resolution attempt and never persisted.
type WorkflowRun struct {
	ID         int64
	HeadSHA    string
	Status     string
	Conclusion string
	CreatedAt  time.Time
}

// Artifact is a file produced by a workflow run.
type Artifact struct {
	ID      int64
	Name    string
	Expired bool
}

// CheckRun is the provider-side status object attached to a commit.
type CheckRun struct {
	ID         int64
	Name       string
	HeadSHA    string
	Status     string
	Conclusion string
}

// Check run status and conclusion vocabulary.
const (
	CheckStatusCompleted = "completed"

	ConclusionSuccess = "success"
	ConclusionFailure = "failure"
	ConclusionNeutral = "neutral"
)

// CheckRunParams carries the fields for creating or updating a check run.
type CheckRunParams struct {
	Name       string
	HeadSHA    string
	Status     string
	Conclusion string
	Title      string
	Summary    string
}

// RunLister lists candidate workflow runs for a commit.
type RunLister interface {
	ListWorkflowRuns(ctx context.Context, repo Repo, headSHA string) ([]WorkflowRun, error)
}

// ArtifactFetcher retrieves workflow run artifacts.
type ArtifactFetcher interface {
	ListArtifacts(ctx context.Context, repo Repo, runID int64) ([]Artifact, error)
	// DownloadArtifact returns the artifact archive bytes (a zip)
	DownloadArtifact(ctx context.Context, repo Repo, artifactID int64) ([]byte, error)
}

// CheckRunWriter creates and updates check runs for a commit.
type CheckRunWriter interface {
	ListCheckRuns(ctx context.Context, repo Repo, headSHA, checkName string) ([]CheckRun, error)
	CreateCheckRun(ctx context.Context, repo Repo, params CheckRunParams) (CheckRun, error)
	UpdateCheckRun(ctx context.Context, repo Repo, id int64, params CheckRunParams) (CheckRun, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Client interface {
	RunLister
	ArtifactFetcher
	CheckRunWriter
}
