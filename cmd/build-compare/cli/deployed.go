package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/davarch/build-compare/internal/domain"
)

var deployedJSON bool

var deployedCmd = &cobra.Command{
	Use:   "deployed",
	Short: "Show the newest build that reached the target stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ref, err := a.pipeline("")
		if err != nil {
			return err
		}

		run, ok, err := a.locator.FindLatestDeployedRun(cmd.Context(), ref.DefinitionID, ref.TargetStage, a.cfg.Compare.MaxCandidates)
		if err != nil {
			return err
		}

		if deployedJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if !ok {
				return enc.Encode(nil)
			}
			return enc.Encode(run)
		}

		if !ok {
			fmt.Printf("no build of %s reached %q in the last %d builds\n", pipelineLabel(ref), ref.TargetStage, a.cfg.Compare.MaxCandidates)
			return nil
		}
		printRun(os.Stdout, run, ref.TargetStage)
		return nil
	},
}

func init() {
	deployedCmd.Flags().BoolVar(&deployedJSON, "json", false, "print JSON")
	rootCmd.AddCommand(deployedCmd)
}

func printRun(w io.Writer, run domain.PipelineRun, stage string) {
	_, _ = fmt.Fprintf(w, "Build %s (#%d) deployed to %s\n", run.BuildNumber, run.ID, stage)
	if run.SourceVersion != "" {
		_, _ = fmt.Fprintf(w, "  commit:   %s\n", run.SourceVersion)
	}
	if run.SourceBranch != "" {
		_, _ = fmt.Fprintf(w, "  branch:   %s\n", run.SourceBranch)
	}
	if !run.FinishTime.IsZero() {
		_, _ = fmt.Fprintf(w, "  finished: %s\n", run.FinishTime.Local().Format(time.DateTime))
	}
	if run.WebURL != "" {
		_, _ = fmt.Fprintf(w, "  %s\n", run.WebURL)
	}
}

func pipelineLabel(p domain.PipelineRef) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("pipeline %d", p.DefinitionID)
}
