package application

import (
	"context"
	"fmt"

	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxCandidates = 50

type DeployLocator struct {
	log    *zap.Logger
	client domain.DevOpsClient
}

func NewDeployLocator(l *zap.Logger, c domain.DevOpsClient) *DeployLocator {
	return &DeployLocator{log: l, client: c}
}

// FindLatestDeployedRun returns the most recent completed run whose targetStage succeeded.
// The bool is false when none of the scanned runs qualifies.
func (d *DeployLocator) FindLatestDeployedRun(ctx context.Context, definitionID int64, targetStage string, maxCandidates int) (domain.PipelineRun, bool, error) {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	runs, err := d.client.ListBuilds(ctx, domain.BuildQuery{
		DefinitionID: definitionID,
		Top:          maxCandidates,
		StatusFilter: domain.StateCompleted,
	})
	if err != nil {
		return domain.PipelineRun{}, false, fmt.Errorf("list builds: %w", err)
	}
	if len(runs) > maxCandidates {
		runs = runs[:maxCandidates]
	}

	deployed := make([]bool, len(runs))

	var g errgroup.Group
	g.SetLimit(maxCandidates)
	for i, run := range runs {
		g.Go(func() error {
			records, err := d.client.BuildTimeline(ctx, run.ID)
			if err != nil {
				d.log.Debug("timeline fetch failed", zap.Int64("build", run.ID), zap.Error(err))
				return nil
			}
			deployed[i] = domain.IsDeployed(records, targetStage)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.PipelineRun{}, false, err
	}

	for i, ok := range deployed {
		if ok {
			return runs[i], true, nil
		}
	}

	d.log.Debug("no deployed run",
		zap.Int64("definition", definitionID),
		zap.String("stage", targetStage),
		zap.Int("scanned", len(runs)),
	)
	return domain.PipelineRun{}, false, nil
}
