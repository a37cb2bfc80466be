// Package bridge binds the comparison use cases to host commands.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davarch/build-compare/internal/application"
	"github.com/davarch/build-compare/internal/domain"
	"github.com/davarch/build-compare/internal/presenter"
	"github.com/davarch/build-compare/internal/transport"
)

const (
	CmdFindLatestDeployedRun = "findLatestDeployedRun"
	CmdFetchLastNBuilds      = "fetchLastNBuilds"
	CmdFetchCommitRangeData  = "fetchCommitRangeData"
	CmdActivePullRequest     = "getActivePullRequestForBranch"
	CmdRender                = "render"
	CmdCurrentBranch         = "getCurrentBranch"
)

var ErrBadParams = errors.New("invalid params")

type Services struct {
	Locator  *application.DeployLocator
	Lister   *application.BuildLister
	Resolver *application.RangeResolver
	PRs      *application.PullRequestLookup

	// Pipeline resolves a configured pipeline by name; an empty name selects the default.
	Pipeline      func(name string) (domain.PipelineRef, error)
	CurrentBranch func(ctx context.Context, dir string) (string, error)

	MaxCandidates int
	BuildCount    int
}

type pipelineParams struct {
	Pipeline string `json:"pipeline,omitempty"`
}

type buildsParams struct {
	Pipeline string `json:"pipeline,omitempty"`
	Count    int    `json:"count"`
}

type rangeParams struct {
	Pipeline      string              `json:"pipeline,omitempty"`
	OlderRun      *domain.PipelineRun `json:"olderRun"`
	SelectedBuild *domain.PipelineRun `json:"selectedBuild"`
}

type RangeResult struct {
	CommitterMap *domain.CommitterGroup `json:"committerMap"`
}

type pullRequestParams struct {
	Pipeline   string `json:"pipeline,omitempty"`
	BranchName string `json:"branchName"`
}

type renderParams struct {
	CommitterMap *domain.CommitterGroup `json:"committerMap"`
	Format       string                 `json:"format"`
}

type branchParams struct {
	Dir string `json:"dir,omitempty"`
}

type BranchResult struct {
	Branch string `json:"branch"`
}

// Register installs every host command on d.
func Register(d *transport.Dispatcher, s Services) {
	d.Handle(CmdFindLatestDeployedRun, s.findLatestDeployedRun)
	d.Handle(CmdFetchLastNBuilds, s.fetchLastNBuilds)
	d.Handle(CmdFetchCommitRangeData, s.fetchCommitRangeData)
	d.Handle(CmdActivePullRequest, s.activePullRequest)
	d.Handle(CmdRender, render)
	d.Handle(CmdCurrentBranch, s.currentBranch)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return nil
}

// A nil result is sent as JSON null, which hosts read as "nothing found".
func (s Services) findLatestDeployedRun(ctx context.Context, raw json.RawMessage) (any, error) {
	var p pipelineParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	ref, err := s.Pipeline(p.Pipeline)
	if err != nil {
		return nil, err
	}

	run, ok, err := s.Locator.FindLatestDeployedRun(ctx, ref.DefinitionID, ref.TargetStage, s.MaxCandidates)
	if err != nil || !ok {
		return nil, err
	}
	return run, nil
}

func (s Services) fetchLastNBuilds(ctx context.Context, raw json.RawMessage) (any, error) {
	var p buildsParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.Count <= 0 {
		p.Count = s.BuildCount
	}
	ref, err := s.Pipeline(p.Pipeline)
	if err != nil {
		return nil, err
	}
	return s.Lister.FetchLastNBuilds(ctx, ref.DefinitionID, ref.RepositoryID, p.Count)
}

func (s Services) fetchCommitRangeData(ctx context.Context, raw json.RawMessage) (any, error) {
	var p rangeParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	if p.OlderRun == nil || p.SelectedBuild == nil {
		return nil, fmt.Errorf("%w: olderRun and selectedBuild are required", ErrBadParams)
	}
	ref, err := s.Pipeline(p.Pipeline)
	if err != nil {
		return nil, err
	}

	g, err := s.Resolver.ForBranch(ref.Branch).ResolveRange(ctx, *p.OlderRun, *p.SelectedBuild, ref.RepositoryID, ref.PathFilter)
	if err != nil {
		return nil, err
	}
	return RangeResult{CommitterMap: g}, nil
}

func (s Services) activePullRequest(ctx context.Context, raw json.RawMessage) (any, error) {
	var p pullRequestParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	ref, err := s.Pipeline(p.Pipeline)
	if err != nil {
		return nil, err
	}

	pr, ok, err := s.PRs.ActiveForBranch(ctx, ref.RepositoryID, p.BranchName)
	if err != nil || !ok {
		return nil, err
	}
	return pr, nil
}

func render(_ context.Context, raw json.RawMessage) (any, error) {
	var p renderParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	f, err := presenter.ParseFormat(p.Format)
	if err != nil {
		return nil, err
	}
	return presenter.Render(p.CommitterMap, f)
}

func (s Services) currentBranch(ctx context.Context, raw json.RawMessage) (any, error) {
	var p branchParams
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	b, err := s.CurrentBranch(ctx, p.Dir)
	if err != nil {
		return nil, err
	}
	return BranchResult{Branch: b}, nil
}
