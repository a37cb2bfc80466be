package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	buildsCount int
	buildsJSON  bool
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List the most recent builds with their commit messages",
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

		n := buildsCount
		if n <= 0 {
			n = a.cfg.Compare.BuildCount
		}
		runs, err := a.lister.FetchLastNBuilds(cmd.Context(), ref.DefinitionID, ref.RepositoryID, n)
		if err != nil {
			return err
		}

		if buildsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tBUILD\tRESULT\tFINISHED\tMESSAGE")
		for _, r := range runs {
			result := r.Result
			if result == "" {
				result = r.Status
			}
			finished := "--"
			if !r.FinishTime.IsZero() {
				finished = r.FinishTime.Local().Format(time.DateTime)
			}
			msg, _, _ := strings.Cut(r.CommitMessage, "\n")
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.BuildNumber, result, finished, msg)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	buildsCmd.Flags().IntVarP(&buildsCount, "count", "n", 0, "number of builds (default: compare.build_count)")
	buildsCmd.Flags().BoolVar(&buildsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(buildsCmd)
}
