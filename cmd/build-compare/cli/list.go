package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/davarch/build-compare/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var (
	listOnlyEnabled  bool
	listOnlyDisabled bool
	listJSON         bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipelines from the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(cfgPath)
		if err != nil {
			return err
		}

		items := make([]config.Pipeline, 0, len(cfg.Pipelines))
		for _, p := range cfg.Pipelines {
			if listOnlyEnabled && !p.IsEnabled() {
				continue
			}
			if listOnlyDisabled && p.IsEnabled() {
				continue
			}
			items = append(items, p)
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tDEFINITION\tSTAGE\tREPOSITORY\tPATHS\tENABLED")
		for _, p := range items {
			name := p.Name
			if name == "" {
				name = "(unnamed)"
			}
			paths := p.PathFilter
			if paths == "" {
				paths = "*"
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%t\n", name, p.DefinitionID, p.TargetStage, p.RepositoryID, paths, p.IsEnabled())
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listOnlyEnabled, "enabled", false, "show only enabled pipelines")
	listCmd.Flags().BoolVar(&listOnlyDisabled, "disabled", false, "show only disabled pipelines")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	listCmd.MarkFlagsMutuallyExclusive("enabled", "disabled")

	rootCmd.AddCommand(listCmd)
}
