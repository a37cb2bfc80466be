package application

import (
	"context"
	"fmt"

	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 10

type BuildLister struct {
	log         *zap.Logger
	client      domain.DevOpsClient
	concurrency int
}

func NewBuildLister(l *zap.Logger, c domain.DevOpsClient, concurrency int) *BuildLister {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BuildLister{log: l, client: c, concurrency: concurrency}
}

// FetchLastNBuilds lists the newest n builds in API order, each enriched with its commit message.
// A failed message lookup leaves that build's message empty.
func (b *BuildLister) FetchLastNBuilds(ctx context.Context, definitionID int64, repositoryID string, n int) ([]domain.PipelineRun, error) {
	runs, err := b.client.ListBuilds(ctx, domain.BuildQuery{DefinitionID: definitionID, Top: n})
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	if repositoryID == "" {
		return runs, nil
	}

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i := range runs {
		if runs[i].SourceVersion == "" {
			continue
		}
		g.Go(func() error {
			c, err := b.client.Commit(ctx, repositoryID, runs[i].SourceVersion)
			if err != nil {
				b.log.Debug("commit message fetch failed",
					zap.Int64("build", runs[i].ID),
					zap.String("commit", runs[i].SourceVersion),
					zap.Error(err),
				)
				return nil
			}
			runs[i].CommitMessage = c.Comment
			return nil
		})
	}
	_ = g.Wait()

	return runs, nil
}
