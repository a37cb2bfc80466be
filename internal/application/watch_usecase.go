package application

import (
	"context"
	"strconv"

	"github.com/davarch/build-compare/internal/domain"
)

type WatchUseCase struct {
	locator       *DeployLocator
	note          domain.Notifier
	maxCandidates int

	last map[domain.PipelineRef]int64
}

func NewWatchUseCase(l *DeployLocator, note domain.Notifier, maxCandidates int) *WatchUseCase {
	return &WatchUseCase{
		locator: l, note: note, maxCandidates: maxCandidates,
		last: make(map[domain.PipelineRef]int64),
	}
}

// CheckOnce notifies when the latest deployed run of p differs from the one seen last time.
func (uc *WatchUseCase) CheckOnce(ctx context.Context, p domain.PipelineRef) error {
	run, ok, err := uc.locator.FindLatestDeployedRun(ctx, p.DefinitionID, p.TargetStage, uc.maxCandidates)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	prev, seen := uc.last[p]
	if seen && prev == run.ID {
		return nil
	}
	uc.last[p] = run.ID

	_ = uc.note.Notify(ctx, titleFor(p), bodyFor(p, run), run.WebURL)
	return nil
}

func titleFor(p domain.PipelineRef) string {
	name := p.Name
	if name == "" {
		name = "pipeline " + strconv.FormatInt(p.DefinitionID, 10)
	}
	return "🚀 Deployed: " + name
}

func bodyFor(p domain.PipelineRef, run domain.PipelineRun) string {
	body := "Build " + run.BuildNumber + " reached " + p.TargetStage
	if run.CommitMessage != "" {
		body += "\n" + run.CommitMessage
	}
	return body
}
