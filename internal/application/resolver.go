package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBranch     = "main"
	DefaultMaxCommits = 10000
	DefaultChunkSize  = 20
)

type RangeOptions struct {
	// Branch is the ref whose history is scanned.
	Branch string
	// MaxCommits caps the commit listing. Longer ranges are truncated.
	MaxCommits int
	// ChunkSize bounds the number of concurrent change lookups.
	ChunkSize int
	// WebURL is the organization URL joined with the project, used to build pull request links.
	WebURL string
}

type RangeResolver struct {
	log    *zap.Logger
	client domain.DevOpsClient
	opt    RangeOptions
}

func NewRangeResolver(l *zap.Logger, c domain.DevOpsClient, opt RangeOptions) *RangeResolver {
	if opt.Branch == "" {
		opt.Branch = DefaultBranch
	}
	if opt.MaxCommits <= 0 {
		opt.MaxCommits = DefaultMaxCommits
	}
	if opt.ChunkSize <= 0 {
		opt.ChunkSize = DefaultChunkSize
	}
	opt.WebURL = strings.TrimRight(opt.WebURL, "/")
	return &RangeResolver{log: l, client: c, opt: opt}
}

// ForBranch returns a resolver scanning branch instead of the configured one.
func (r *RangeResolver) ForBranch(branch string) *RangeResolver {
	if branch == "" || branch == r.opt.Branch {
		return r
	}
	cp := *r
	cp.opt.Branch = branch
	return &cp
}

// ResolveRange groups, by committer, the merged pull requests between older's parent commit
// and newer's commit that touched a path matched by pathFilter.
//
// Relevant commits without a "Merged PR <n>" message are dropped, so direct pushes never
// show up in the result.
func (r *RangeResolver) ResolveRange(ctx context.Context, older, newer domain.PipelineRun, repositoryID, pathFilter string) (*domain.CommitterGroup, error) {
	if older.SourceVersion == "" {
		return nil, fmt.Errorf("build %d: %w", older.ID, domain.ErrNoSourceVersion)
	}
	if newer.SourceVersion == "" {
		return nil, fmt.Errorf("build %d: %w", newer.ID, domain.ErrNoSourceVersion)
	}

	base, err := r.client.Commit(ctx, repositoryID, older.SourceVersion)
	if err != nil {
		return nil, fmt.Errorf("fetch commit %s: %w", older.SourceVersion, err)
	}
	if len(base.Parents) == 0 || base.Parents[0] == "" {
		return nil, fmt.Errorf("could not find parent commit for %s: %w", older.SourceVersion, domain.ErrNoParentCommit)
	}

	var parent, head domain.Commit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := r.client.Commit(gctx, repositoryID, base.Parents[0])
		if err != nil {
			return fmt.Errorf("fetch parent commit %s: %w", base.Parents[0], err)
		}
		parent = c
		return nil
	})
	g.Go(func() error {
		c, err := r.client.Commit(gctx, repositoryID, newer.SourceVersion)
		if err != nil {
			return fmt.Errorf("fetch commit %s: %w", newer.SourceVersion, err)
		}
		head = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	from, to := parent.RangeDate(), head.RangeDate()
	if from.IsZero() || to.IsZero() {
		return nil, domain.ErrNoDateRange
	}

	commits, err := r.client.ListCommits(ctx, domain.CommitQuery{
		RepositoryID: repositoryID,
		Branch:       r.opt.Branch,
		From:         from,
		To:           to,
		Top:          r.opt.MaxCommits,
	})
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	if len(commits) >= r.opt.MaxCommits {
		r.log.Warn("commit range truncated",
			zap.Int("max_commits", r.opt.MaxCommits),
			zap.Time("from", from),
			zap.Time("to", to),
		)
	}

	filter := ParsePathFilter(pathFilter)
	group := domain.NewCommitterGroup()

	for _, chunk := range chunkCommits(commits, r.opt.ChunkSize) {
		results := make([]*match, len(chunk))

		var cg errgroup.Group
		for i, c := range chunk {
			cg.Go(func() error {
				results[i] = r.evaluate(ctx, repositoryID, c, filter)
				return nil
			})
		}
		_ = cg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, m := range results {
			if m != nil {
				group.Add(m.committer, m.ref)
			}
		}
	}

	r.log.Debug("range resolved",
		zap.String("from_commit", parent.ID),
		zap.String("to_commit", head.ID),
		zap.Int("commits", len(commits)),
		zap.Int("pull_requests", group.Total()),
	)
	return group, nil
}

type match struct {
	committer string
	ref       domain.PullRequestRef
}

func (r *RangeResolver) evaluate(ctx context.Context, repositoryID string, c domain.Commit, filter PathFilter) *match {
	paths := c.Changes
	if paths == nil {
		var err error
		paths, err = r.client.CommitChanges(ctx, repositoryID, c.ID)
		if err != nil {
			r.log.Debug("commit changes fetch failed", zap.String("commit", c.ID), zap.Error(err))
			return nil
		}
	}
	if !filter.Matches(paths) {
		return nil
	}

	n, ok := ParseMergedPR(c.Comment)
	if !ok {
		return nil
	}

	return &match{
		committer: c.Committer.Name,
		ref: domain.PullRequestRef{
			Number:   n,
			Message:  c.Comment,
			Link:     r.PullRequestLink(repositoryID, n),
			CommitID: c.ID,
		},
	}
}

func (r *RangeResolver) PullRequestLink(repositoryID, number string) string {
	return fmt.Sprintf("%s/_git/%s/pullrequest/%s", r.opt.WebURL, repositoryID, number)
}

func chunkCommits(cs []domain.Commit, size int) [][]domain.Commit {
	if size <= 0 {
		size = len(cs)
	}
	var out [][]domain.Commit
	for i := 0; i < len(cs); i += size {
		end := i + size
		if end > len(cs) {
			end = len(cs)
		}
		out = append(out, cs[i:end])
	}
	return out
}
