package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/application"
	"github.com/davarch/build-compare/internal/domain"
	"github.com/davarch/build-compare/internal/infrastructure/azdo_http"
	"github.com/davarch/build-compare/internal/infrastructure/config"
	"github.com/davarch/build-compare/internal/infrastructure/logging"
)

// app is the wiring shared by every command that talks to Azure DevOps.
type app struct {
	log *zap.Logger
	cfg config.Config

	client   *azdo_http.Client
	locator  *application.DeployLocator
	lister   *application.BuildLister
	resolver *application.RangeResolver
	prs      *application.PullRequestLookup
}

func newApp() (*app, error) {
	log := logging.New()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	var opts []azdo_http.Option
	if cfg.AzureDevOps.TokenType == config.TokenPAT {
		opts = append(opts, azdo_http.WithPAT())
	}
	client := azdo_http.New(cfg.AzureDevOps.OrganizationURL, cfg.AzureDevOps.Project, cfg.AzureDevOps.Token, cfg.AzureDevOps.Timeout, opts...)

	return &app{
		log:     log,
		cfg:     cfg,
		client:  client,
		locator: application.NewDeployLocator(log, client),
		lister:  application.NewBuildLister(log, client, cfg.Compare.Concurrency),
		resolver: application.NewRangeResolver(log, client, application.RangeOptions{
			MaxCommits: cfg.Compare.MaxCommits,
			ChunkSize:  cfg.Compare.ChunkSize,
			WebURL:     client.WebURL(),
		}),
		prs: application.NewPullRequestLookup(client),
	}, nil
}

func (a *app) close() { _ = a.log.Sync() }

// pipeline picks name, falling back to --pipeline and then to the first enabled pipeline.
func (a *app) pipeline(name string) (domain.PipelineRef, error) {
	if name == "" {
		name = pipelineName
	}
	p, err := a.cfg.Select(name)
	if err != nil {
		return domain.PipelineRef{}, err
	}
	return p.Ref(), nil
}

func completePipelineNames(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		if p.Name != "" && strings.HasPrefix(p.Name, toComplete) {
			out = append(out, p.Name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
