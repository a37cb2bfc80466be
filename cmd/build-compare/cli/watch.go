package cli

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/application"
	"github.com/davarch/build-compare/internal/infrastructure/config"
	"github.com/davarch/build-compare/internal/infrastructure/desktop"
)

const reloadDebounce = 300 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll enabled pipelines and notify when a new build is deployed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		pipelines := a.cfg.EnabledPipelines()
		if len(pipelines) == 0 {
			return errors.New("no enabled pipelines")
		}

		note := desktop.NewSoftNotifier().
			WithUrgency(a.cfg.Watch.Urgency).
			WithExpire(a.cfg.Watch.Expire)
		uc := application.NewWatchUseCase(a.locator, note, a.cfg.Compare.MaxCandidates)
		sched := application.NewScheduler(a.log, uc, pipelines, a.cfg.Watch.Interval, a.cfg.Watch.PauseFile)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		watchAndReload(ctx, cfgPath, a.log, sched)

		a.log.Info("start",
			zap.String("version", version),
			zap.Int("pipelines", len(pipelines)),
			zap.Duration("every", a.cfg.Watch.Interval),
			zap.String("organization", a.cfg.AzureDevOps.OrganizationURL),
			zap.String("project", a.cfg.AzureDevOps.Project),
			zap.String("pause_file", a.cfg.Watch.PauseFile),
		)
		sched.Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchAndReload swaps the scheduler's pipelines whenever the config file changes.
func watchAndReload(ctx context.Context, cfgPath string, log *zap.Logger, sched *application.Scheduler) {
	if cfgPath == "" {
		return
	}

	dir := filepath.Dir(cfgPath)
	base := filepath.Base(cfgPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return
	}
	if err := w.Add(dir); err != nil {
		log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
		_ = w.Close()
		return
	}

	reload := func() {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Warn("config reload failed", zap.Error(err))
			return
		}
		pipelines := cfg.EnabledPipelines()
		if len(pipelines) == 0 {
			log.Warn("config reload: no enabled pipelines")
		}
		sched.UpdatePipelines(pipelines)
	}

	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(reloadDebounce, reload)
				} else {
					timer.Reset(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
}
