package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath      string
	pipelineName string
	version      = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "build-compare",
	Short:         "Compare Azure DevOps builds against the last deployed run",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config.yaml (or *.toml)")
	rootCmd.PersistentFlags().StringVarP(&pipelineName, "pipeline", "p", "", "pipeline name from config (default: first enabled)")

	_ = rootCmd.RegisterFlagCompletionFunc("pipeline", completePipelineNames)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(version)
		},
	})

	comp := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				return rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				return rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	rootCmd.AddCommand(comp)
}
