package application

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/davarch/build-compare/internal/domain"
	"go.uber.org/zap"
)

type Scheduler struct {
	log       *zap.Logger
	use       *WatchUseCase
	every     time.Duration
	pauseFile string

	mu        sync.RWMutex
	pipelines []domain.PipelineRef
}

func NewScheduler(l *zap.Logger, u *WatchUseCase, pipelines []domain.PipelineRef, every time.Duration, pauseFile string) *Scheduler {
	return &Scheduler{
		log: l, use: u, pipelines: pipelines, every: every, pauseFile: pauseFile,
	}
}

func (s *Scheduler) UpdatePipelines(pipelines []domain.PipelineRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines = pipelines
	s.log.Info("config reloaded", zap.Int("pipelines", len(pipelines)))
}

func (s *Scheduler) Pipelines() []domain.PipelineRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PipelineRef, len(s.pipelines))
	copy(out, s.pipelines)
	return out
}

func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.every)
	defer t.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.isPaused() {
		s.log.Debug("paused: skipping check")
		return
	}
	s.runAll(ctx)
}

func (s *Scheduler) isPaused() bool {
	if s.pauseFile == "" {
		return false
	}
	_, err := os.Stat(s.pauseFile)
	return err == nil
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, p := range s.Pipelines() {
		if err := s.use.CheckOnce(ctx, p); err != nil {
			s.log.Warn("deployment check failed",
				zap.String("pipeline", p.Name),
				zap.Int64("definition", p.DefinitionID),
				zap.String("stage", p.TargetStage),
				zap.Error(err),
			)
		}
	}
}
