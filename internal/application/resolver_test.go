package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func at(h int) domain.GitUserDate {
	return domain.GitUserDate{Date: t0.Add(time.Duration(h) * time.Hour)}
}

func committed(id, who, msg string, h int) domain.Commit {
	return domain.Commit{
		ID:        id,
		Committer: domain.GitUserDate{Name: who, Date: t0.Add(time.Duration(h) * time.Hour)},
		Comment:   msg,
	}
}

// rangeFixture has build 1 (older) on commit "base" whose parent is "parent", and build 2 on "head".
func rangeFixture() *domain.MockDevOps {
	return &domain.MockDevOps{
		Commits: map[string]domain.Commit{
			"base":   {ID: "base", Parents: []string{"parent"}, Committer: at(1)},
			"parent": {ID: "parent", Committer: at(0)},
			"head":   {ID: "head", Author: at(10)},
		},
		Changes: map[string][]string{},
	}
}

var (
	olderRun = domain.PipelineRun{ID: 1, SourceVersion: "base"}
	newerRun = domain.PipelineRun{ID: 2, SourceVersion: "head"}
)

func newResolver(dev domain.DevOpsClient, chunk int) *RangeResolver {
	return NewRangeResolver(zap.NewNop(), dev, RangeOptions{
		ChunkSize: chunk,
		WebURL:    "https://dev.azure.com/org/proj/",
	})
}

func TestResolveRange_EndToEnd(t *testing.T) {
	dev := rangeFixture()
	dev.RangeCommits = []domain.Commit{
		committed("c1", "alice", "Merged PR 100: x", 2),
		committed("c2", "bob", "Merged PR 101: y", 3),
		committed("c3", "carol", "random fix", 4),
	}
	dev.Changes = map[string][]string{
		"c1": {"/src/app.ts"},
		"c2": {"/docs/readme.md"},
		"c3": {"/src/app.ts"},
	}

	g, err := newResolver(dev, 0).ResolveRange(context.Background(), olderRun, newerRun, "repo", "src/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Len() != 1 || g.Total() != 1 {
		t.Fatalf("expected exactly one entry, got %d committers / %d refs", g.Len(), g.Total())
	}
	refs := g.Refs("alice")
	if len(refs) != 1 {
		t.Fatalf("expected PR for alice, got %v", g.Committers())
	}
	want := domain.PullRequestRef{
		Number:   "100",
		Message:  "Merged PR 100: x",
		Link:     "https://dev.azure.com/org/proj/_git/repo/pullrequest/100",
		CommitID: "c1",
	}
	if refs[0] != want {
		t.Errorf("expected %+v, got %+v", want, refs[0])
	}

	q := dev.LastCommitQuery
	if !q.From.Equal(t0) || !q.To.Equal(t0.Add(10*time.Hour)) {
		t.Errorf("unexpected date range %v..%v", q.From, q.To)
	}
	if q.Branch != DefaultBranch || q.Top != DefaultMaxCommits || q.RepositoryID != "repo" {
		t.Errorf("unexpected commit query %+v", q)
	}
}

func TestResolveRange_MissingParent(t *testing.T) {
	dev := rangeFixture()
	dev.Commits["base"] = domain.Commit{ID: "base", Committer: at(1)}
	dev.RangeCommits = []domain.Commit{committed("c1", "alice", "Merged PR 100: x", 2)}

	g, err := newResolver(dev, 0).ResolveRange(context.Background(), olderRun, newerRun, "repo", "")
	if !errors.Is(err, domain.ErrNoParentCommit) {
		t.Fatalf("expected ErrNoParentCommit, got %v", err)
	}
	if g != nil {
		t.Errorf("expected no partial group, got %v", g.Committers())
	}
	if dev.Calls("ListCommits") != 0 {
		t.Error("commit listing should not run without a parent")
	}
}

func TestResolveRange_MissingDates(t *testing.T) {
	dev := rangeFixture()
	dev.Commits["head"] = domain.Commit{ID: "head"}

	_, err := newResolver(dev, 0).ResolveRange(context.Background(), olderRun, newerRun, "repo", "")
	if !errors.Is(err, domain.ErrNoDateRange) {
		t.Fatalf("expected ErrNoDateRange, got %v", err)
	}
}

func TestResolveRange_MissingSourceVersion(t *testing.T) {
	_, err := newResolver(rangeFixture(), 0).ResolveRange(context.Background(), domain.PipelineRun{ID: 1}, newerRun, "repo", "")
	if !errors.Is(err, domain.ErrNoSourceVersion) {
		t.Fatalf("expected ErrNoSourceVersion, got %v", err)
	}
}

func TestResolveRange_TransportFailureSurfaces(t *testing.T) {
	dev := rangeFixture()
	dev.ListCommitsErr = domain.ErrTimeout

	_, err := newResolver(dev, 0).ResolveRange(context.Background(), olderRun, newerRun, "repo", "")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestResolveRange_PerCommitFailureIsDropped(t *testing.T) {
	dev := rangeFixture()
	dev.RangeCommits = []domain.Commit{
		committed("c1", "alice", "Merged PR 1: a", 2),
		committed("c2", "", "Merged PR 2: b", 3),
	}
	dev.ChangesErr = map[string]error{"c1": errors.New("boom")}

	g, err := newResolver(dev, 0).ResolveRange(context.Background(), olderRun, newerRun, "repo", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 1 || len(g.Refs(domain.UnknownCommitter)) != 1 {
		t.Errorf("expected only the Unknown committer, got %v", g.Committers())
	}
}

func TestResolveRange_ChunkSizeInvariance(t *testing.T) {
	dev := rangeFixture()
	who := []string{"alice", "bob", "carol", ""}
	paths := [][]string{{"/src/a.go"}, {"/docs/x.md"}, {"/infra/main.tf", "/src/b.go"}, {""}}
	for i := 0; i < 47; i++ {
		id := fmt.Sprintf("c%02d", i)
		msg := fmt.Sprintf("Merged PR %d: change %d", 200+i, i)
		if i%5 == 0 {
			msg = "direct push " + id
		}
		if i%7 == 0 {
			msg = fmt.Sprintf("merged pr %d lowercase", 300+i)
		}
		dev.RangeCommits = append(dev.RangeCommits, committed(id, who[i%len(who)], msg, 1+i%9))
		dev.Changes[id] = paths[i%len(paths)]
	}
	dev.ChangesErr = map[string]error{"c13": errors.New("boom")}

	for _, filter := range []string{"", "src/", "src/, docs/", "nothing"} {
		base, err := newResolver(dev, len(dev.RangeCommits)).ResolveRange(context.Background(), olderRun, newerRun, "repo", filter)
		if err != nil {
			t.Fatalf("filter %q: unexpected error: %v", filter, err)
		}
		for _, size := range []int{1, 5, 20} {
			g, err := newResolver(dev, size).ResolveRange(context.Background(), olderRun, newerRun, "repo", filter)
			if err != nil {
				t.Fatalf("filter %q chunk %d: unexpected error: %v", filter, size, err)
			}
			if !g.Equal(base) {
				t.Errorf("filter %q: chunk size %d changed the result", filter, size)
			}
		}
	}
}

func TestResolveRange_HonoursBranchAndCeiling(t *testing.T) {
	dev := rangeFixture()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("c%d", i)
		dev.RangeCommits = append(dev.RangeCommits, committed(id, "alice", fmt.Sprintf("Merged PR %d: x", i), 2))
	}

	r := NewRangeResolver(zap.NewNop(), dev, RangeOptions{Branch: "release", MaxCommits: 3})
	g, err := r.ResolveRange(context.Background(), olderRun, newerRun, "repo", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Total() != 3 {
		t.Errorf("expected truncation to 3 refs, got %d", g.Total())
	}
	if dev.LastCommitQuery.Branch != "release" || dev.LastCommitQuery.Top != 3 {
		t.Errorf("unexpected commit query %+v", dev.LastCommitQuery)
	}
}

func TestForBranch(t *testing.T) {
	dev := rangeFixture()
	base := newResolver(dev, 0)
	if base.ForBranch("") != base || base.ForBranch(DefaultBranch) != base {
		t.Error("expected the same resolver for an empty or unchanged branch")
	}

	if _, err := base.ForBranch("develop").ResolveRange(context.Background(), olderRun, newerRun, "repo", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.LastCommitQuery.Branch != "develop" {
		t.Errorf("expected develop, got %s", dev.LastCommitQuery.Branch)
	}
	if base.opt.Branch != DefaultBranch {
		t.Errorf("expected the receiver to keep %s, got %s", DefaultBranch, base.opt.Branch)
	}
}

func TestResolveRange_CancelledContext(t *testing.T) {
	dev := rangeFixture()
	dev.RangeCommits = []domain.Commit{committed("c1", "alice", "Merged PR 1: a", 2)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newResolver(dev, 0).ResolveRange(ctx, olderRun, newerRun, "repo", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
