package domain

import (
	"strings"
	"time"
)

const (
	RecordTypeStage = "Stage"
	StateCompleted  = "completed"
	ResultSucceeded = "succeeded"

	UnknownCommitter = "Unknown"
)

type PipelineRun struct {
	ID            int64     `json:"id"`
	BuildNumber   string    `json:"buildNumber"`
	SourceVersion string    `json:"sourceVersion,omitempty"`
	SourceBranch  string    `json:"sourceBranch,omitempty"`
	QueueTime     time.Time `json:"queueTime,omitzero"`
	FinishTime    time.Time `json:"finishTime,omitzero"`
	Status        string    `json:"status,omitempty"`
	Result        string    `json:"result,omitempty"`
	CommitMessage string    `json:"commitMessage,omitempty"`
	WebURL        string    `json:"webUrl,omitempty"`
}

type TimelineRecord struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Result string `json:"result"`
}

// IsDeployed reports whether the timeline holds a completed, succeeded Stage record named stage.
func IsDeployed(records []TimelineRecord, stage string) bool {
	for _, r := range records {
		if r.Type != RecordTypeStage || r.Name != stage {
			continue
		}
		if strings.EqualFold(r.State, StateCompleted) && strings.EqualFold(r.Result, ResultSucceeded) {
			return true
		}
	}
	return false
}

type GitUserDate struct {
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
	Date  time.Time `json:"date,omitzero"`
}

type Commit struct {
	ID        string      `json:"commitId"`
	Author    GitUserDate `json:"author"`
	Committer GitUserDate `json:"committer"`
	Comment   string      `json:"comment"`
	Parents   []string    `json:"parents,omitempty"`
	Changes   []string    `json:"changes,omitempty"`
}

// RangeDate is the committer date, or the author date when the committer date is missing.
func (c Commit) RangeDate() time.Time {
	if !c.Committer.Date.IsZero() {
		return c.Committer.Date
	}
	return c.Author.Date
}

type PullRequestRef struct {
	Number   string `json:"number"`
	Message  string `json:"message"`
	Link     string `json:"link"`
	CommitID string `json:"commitId,omitempty"`
}

type PullRequest struct {
	ID           int       `json:"pullRequestId"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	SourceRef    string    `json:"sourceRefName"`
	TargetRef    string    `json:"targetRefName"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreationDate time.Time `json:"creationDate,omitzero"`
	WebURL       string    `json:"webUrl,omitempty"`
	IsDraft      bool      `json:"isDraft"`
}

type PipelineRef struct {
	Name         string `json:"name,omitempty"`
	DefinitionID int64  `json:"definitionId"`
	TargetStage  string `json:"targetStage"`
	RepositoryID string `json:"repositoryId"`
	PathFilter   string `json:"pathFilter,omitempty"`
	Branch       string `json:"branch,omitempty"`
}

type BuildQuery struct {
	DefinitionID int64
	Top          int
	StatusFilter string
}

type CommitQuery struct {
	RepositoryID string
	Branch       string
	From         time.Time
	To           time.Time
	Top          int
}

type PullRequestQuery struct {
	RepositoryID string
	SourceRef    string
	Status       string
}
