package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/bridge"
	"github.com/davarch/build-compare/internal/infrastructure/gitrepo"
	"github.com/davarch/build-compare/internal/transport"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve comparison commands to a host process over stdio or HTTP",
	Long: `Reads newline-delimited JSON requests {"command","requestId","params"} from stdin and
writes {"command":"<command>Response","requestId","result"|"error"} lines to stdout.
With --addr the same commands are served on POST /rpc.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		d := transport.NewDispatcher(a.log, serveTimeout)
		bridge.Register(d, bridge.Services{
			Locator:       a.locator,
			Lister:        a.lister,
			Resolver:      a.resolver,
			PRs:           a.prs,
			Pipeline:      a.pipeline,
			CurrentBranch: gitrepo.CurrentBranch,
			MaxCandidates: a.cfg.Compare.MaxCandidates,
			BuildCount:    a.cfg.Compare.BuildCount,
		})

		if serveAddr == "" {
			a.log.Info("serving on stdio", zap.Strings("commands", d.Commands()))
			return d.ServeStream(cmd.Context(), os.Stdin, os.Stdout)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           d.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()

		a.log.Info("serving on http", zap.String("addr", serveAddr), zap.Strings("commands", d.Commands()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for HTTP (default: stdio)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", transport.DefaultTimeout, "per-request timeout")
	rootCmd.AddCommand(serveCmd)
}
