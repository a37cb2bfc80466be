package domain

import "context"

// DevOpsClient is everything the comparator needs from the build and source-control APIs.
type DevOpsClient interface {
	ListBuilds(ctx context.Context, q BuildQuery) ([]PipelineRun, error)
	BuildTimeline(ctx context.Context, buildID int64) ([]TimelineRecord, error)
	Commit(ctx context.Context, repositoryID, commitID string) (Commit, error)
	CommitChanges(ctx context.Context, repositoryID, commitID string) ([]string, error)
	ListCommits(ctx context.Context, q CommitQuery) ([]Commit, error)
	PullRequests(ctx context.Context, q PullRequestQuery) ([]PullRequest, error)
}

type Notifier interface {
	Notify(ctx context.Context, title, body, url string) error
}

type Clipboard interface {
	Copy(ctx context.Context, text string) error
}
