package domain

import (
	"context"
	"fmt"
	"sync"
)

// MockDevOps is an in-memory DevOpsClient. It is safe for concurrent use.
type MockDevOps struct {
	Builds    []PipelineRun
	BuildsErr error

	Timelines   map[int64][]TimelineRecord
	TimelineErr map[int64]error

	Commits    map[string]Commit
	CommitErr  map[string]error
	Changes    map[string][]string
	ChangesErr map[string]error

	RangeCommits   []Commit
	ListCommitsErr error

	PRs   []PullRequest
	PRErr error

	mu              sync.Mutex
	calls           map[string]int
	LastBuildQuery  BuildQuery
	LastCommitQuery CommitQuery
	LastPRQuery     PullRequestQuery
}

func (m *MockDevOps) called(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

func (m *MockDevOps) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockDevOps) ListBuilds(ctx context.Context, q BuildQuery) ([]PipelineRun, error) {
	m.called("ListBuilds")
	m.mu.Lock()
	m.LastBuildQuery = q
	m.mu.Unlock()
	if m.BuildsErr != nil {
		return nil, m.BuildsErr
	}
	out := m.Builds
	if q.Top > 0 && len(out) > q.Top {
		out = out[:q.Top]
	}
	return append([]PipelineRun(nil), out...), nil
}

func (m *MockDevOps) BuildTimeline(ctx context.Context, buildID int64) ([]TimelineRecord, error) {
	m.called("BuildTimeline")
	if err := m.TimelineErr[buildID]; err != nil {
		return nil, err
	}
	return m.Timelines[buildID], nil
}

func (m *MockDevOps) Commit(ctx context.Context, repositoryID, commitID string) (Commit, error) {
	m.called("Commit")
	if err := m.CommitErr[commitID]; err != nil {
		return Commit{}, err
	}
	c, ok := m.Commits[commitID]
	if !ok {
		return Commit{}, fmt.Errorf("commit %s: %w", commitID, ErrNotFound)
	}
	return c, nil
}

func (m *MockDevOps) CommitChanges(ctx context.Context, repositoryID, commitID string) ([]string, error) {
	m.called("CommitChanges")
	if err := m.ChangesErr[commitID]; err != nil {
		return nil, err
	}
	return m.Changes[commitID], nil
}

func (m *MockDevOps) ListCommits(ctx context.Context, q CommitQuery) ([]Commit, error) {
	m.called("ListCommits")
	m.mu.Lock()
	m.LastCommitQuery = q
	m.mu.Unlock()
	if m.ListCommitsErr != nil {
		return nil, m.ListCommitsErr
	}

	var out []Commit
	for _, c := range m.RangeCommits {
		d := c.RangeDate()
		if d.Before(q.From) || d.After(q.To) {
			continue
		}
		if q.Top > 0 && len(out) == q.Top {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MockDevOps) PullRequests(ctx context.Context, q PullRequestQuery) ([]PullRequest, error) {
	m.called("PullRequests")
	m.mu.Lock()
	m.LastPRQuery = q
	m.mu.Unlock()
	if m.PRErr != nil {
		return nil, m.PRErr
	}
	return m.PRs, nil
}

type MockNotifier struct {
	Messages []string
	Err      error
}

func (n *MockNotifier) Notify(ctx context.Context, title, body, url string) error {
	n.Messages = append(n.Messages, title+"|"+body+"|"+url)
	return n.Err
}

type MockClipboard struct {
	Text string
	Err  error
}

func (c *MockClipboard) Copy(ctx context.Context, text string) error {
	if c.Err != nil {
		return c.Err
	}
	c.Text = text
	return nil
}
