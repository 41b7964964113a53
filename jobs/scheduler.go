// Package jobs runs background tasks on timers until the root context is
// cancelled.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

type registration struct {
	name     string
	task     Task
	delay    time.Duration
	interval time.Duration // zero for one-shot tasks
}

type Scheduler struct {
	log  *zap.Logger
	regs []registration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{log: log}
}

// Once runs task a single time after delay.
func (s *Scheduler) Once(name string, delay time.Duration, task Task) {
	s.regs = append(s.regs, registration{name: name, task: task, delay: delay})
}

// Every runs task every interval, the first run one interval after Start.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	s.regs = append(s.regs, registration{name: name, task: task, delay: interval, interval: interval})
}

// Start launches one goroutine per registration. Calling it twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, reg := range s.regs {
		s.wg.Add(1)
		go s.loop(ctx, reg)
	}
}

// Stop cancels pending runs and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, reg registration) {
	defer s.wg.Done()

	timer := time.NewTimer(reg.delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.run(ctx, reg)
			if reg.interval <= 0 {
				return
			}
			timer.Reset(reg.interval)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, reg registration) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job", reg.name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := reg.task(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", reg.name), zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", reg.name), zap.Duration("took", time.Since(start)))
}
