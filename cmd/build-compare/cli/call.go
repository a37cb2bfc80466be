package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/infrastructure/logging"
	"github.com/davarch/build-compare/internal/transport"
)

var callTimeout time.Duration

var callCmd = &cobra.Command{
	Use:   "call <command> [params-json]",
	Short: "Send one command to a serve subprocess and print its result",
	Long: `Starts "build-compare serve" on stdio, sends a single request and prints the JSON result.
Useful for checking what a host would receive, e.g.:
  build-compare call fetchLastNBuilds '{"count":5}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.New()
		defer func() { _ = log.Sync() }()

		var params any
		if len(args) == 2 {
			raw := json.RawMessage(args[1])
			if !json.Valid(raw) {
				return fmt.Errorf("params for %s are not valid JSON", args[0])
			}
			params = raw
		}

		exe, err := os.Executable()
		if err != nil {
			return err
		}
		serveArgs := []string{"serve", "--config", cfgPath, "--timeout", callTimeout.String()}
		if pipelineName != "" {
			serveArgs = append(serveArgs, "--pipeline", pipelineName)
		}
		sub := exec.CommandContext(ctx, exe, serveArgs...)
		sub.Stderr = os.Stderr
		stdin, err := sub.StdinPipe()
		if err != nil {
			return err
		}
		stdout, err := sub.StdoutPipe()
		if err != nil {
			return err
		}
		if err := sub.Start(); err != nil {
			return fmt.Errorf("start serve: %w", err)
		}

		c := transport.NewClient(log, stdout, stdin, callTimeout)
		var out json.RawMessage
		callErr := c.Call(ctx, args[0], params, &out)

		// Closing stdin ends the server; wait for its output to drain before reaping it.
		_ = c.Close()
		<-c.Done()
		if err := sub.Wait(); err != nil {
			log.Debug("serve exited", zap.Error(err))
		}
		if callErr != nil {
			return callErr
		}

		if len(out) == 0 {
			fmt.Println("null")
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	callCmd.Flags().DurationVar(&callTimeout, "timeout", transport.DefaultTimeout, "time to wait for the response")
	rootCmd.AddCommand(callCmd)
}
