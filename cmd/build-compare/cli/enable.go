package cli

import (
	"fmt"

	"github.com/davarch/build-compare/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:               "enable <pipeline_name>",
	Short:             "Enable a pipeline by name in the config file",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePipelineNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:               "disable <pipeline_name>",
	Short:             "Disable a pipeline by name in the config file",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePipelineNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd, disableCmd)
}

func setEnabled(name string, on bool) error {
	state := "disabled"
	if on {
		state = "enabled"
	}

	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return err
	}

	changed := false
	for i := range cfg.Pipelines {
		if cfg.Pipelines[i].Name == name && cfg.Pipelines[i].IsEnabled() != on {
			cfg.Pipelines[i].SetEnabled(on)
			changed = true
		}
	}

	if !changed {
		fmt.Printf("no change (pipeline %q already %s or not found)\n", name, state)
		return nil
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", state, name)
	return nil
}
