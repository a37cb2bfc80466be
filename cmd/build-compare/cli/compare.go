package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/application"
	"github.com/davarch/build-compare/internal/domain"
	"github.com/davarch/build-compare/internal/infrastructure/desktop"
	"github.com/davarch/build-compare/internal/presenter"
	"github.com/davarch/build-compare/internal/tui"
)

var (
	compareBase   int64
	compareFormat string
	compareCopy   bool
	compareCount  int
)

var compareCmd = &cobra.Command{
	Use:   "compare [build-id]",
	Short: "List merged pull requests between the deployed build and another build",
	Long: `Compares the newest deployed build (or --base) with the given build.
Without a build id the build is picked interactively on a terminal, or the newest build is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format := compareFormat
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if format == "" {
			format = a.cfg.Compare.Format
		}
		f, err := presenter.ParseFormat(format)
		if err != nil {
			return err
		}

		ref, err := a.pipeline("")
		if err != nil {
			return err
		}

		n := compareCount
		if n <= 0 {
			n = a.cfg.Compare.BuildCount
		}
		runs, err := a.lister.FetchLastNBuilds(ctx, ref.DefinitionID, ref.RepositoryID, n)
		if err != nil {
			return err
		}

		var base domain.PipelineRun
		if compareBase > 0 {
			r, ok := findRun(runs, compareBase)
			if !ok {
				return fmt.Errorf("base build %d is not among the last %d builds (raise --count)", compareBase, n)
			}
			base = r
		} else {
			r, ok, err := a.locator.FindLatestDeployedRun(ctx, ref.DefinitionID, ref.TargetStage, a.cfg.Compare.MaxCandidates)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no build of %s reached %q in the last %d builds; pass --base", pipelineLabel(ref), ref.TargetStage, a.cfg.Compare.MaxCandidates)
			}
			base = r
		}

		var selected domain.PipelineRun
		switch {
		case len(args) == 1:
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("build id %q: %w", args[0], err)
			}
			r, ok := findRun(runs, id)
			if !ok {
				return fmt.Errorf("build %d is not among the last %d builds (raise --count)", id, n)
			}
			selected = r
		case isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()):
			title := fmt.Sprintf("%s: compare against build %s (#%d)", pipelineLabel(ref), base.BuildNumber, base.ID)
			r, ok, err := tui.PickBuild(os.Stdin, os.Stdout, title, runs, base.ID)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			selected = r
		case len(runs) > 0:
			selected = runs[0]
		default:
			return errors.New("no builds found")
		}

		if selected.ID == base.ID {
			fmt.Printf("build %d is the deployed build; nothing to compare\n", base.ID)
			return nil
		}

		older, newer := base, selected
		if newer.ID < older.ID {
			older, newer = newer, older
		}
		a.log.Info("comparing",
			zap.String("pipeline", pipelineLabel(ref)),
			zap.Int64("older", older.ID),
			zap.Int64("newer", newer.ID))

		g, err := a.resolver.ForBranch(ref.Branch).ResolveRange(ctx, older, newer, ref.RepositoryID, ref.PathFilter)
		if err != nil {
			return err
		}

		text, err := presenter.Render(g, f)
		if err != nil {
			return err
		}
		fmt.Print(text)
		if f == presenter.FormatMarkdown {
			fmt.Println()
		}

		if compareCopy {
			if _, err := application.CopySummary(ctx, desktop.NewClipboard(), g); err != nil {
				a.log.Warn("copy to clipboard failed", zap.Error(err))
			} else {
				a.log.Info("copied markdown summary to clipboard")
			}
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().Int64Var(&compareBase, "base", 0, "baseline build id (default: newest deployed build)")
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "", "plain, annotated or markdown (default: compare.format)")
	compareCmd.Flags().BoolVar(&compareCopy, "copy", false, "copy a markdown summary to the clipboard")
	compareCmd.Flags().IntVarP(&compareCount, "count", "n", 0, "number of recent builds to choose from (default: compare.build_count)")
	rootCmd.AddCommand(compareCmd)
}

func findRun(runs []domain.PipelineRun, id int64) (domain.PipelineRun, bool) {
	for _, r := range runs {
		if r.ID == id {
			return r, true
		}
	}
	return domain.PipelineRun{}, false
}
