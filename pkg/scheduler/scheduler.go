package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler runs registered tasks on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	timeout time.Duration
}

// New constructs a scheduler. Each run is bounded by timeout when positive.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a named task. An empty spec disables the task.
func (s *Scheduler) Register(name, spec string, task Task) error {
	if spec == "" {
		s.logger.Info("scheduled task disabled", zap.String("task", name))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, task) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.logger.Info("scheduled task registered", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// Start begins running tasks in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running tasks until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

func (s *Scheduler) run(name string, task Task) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}
