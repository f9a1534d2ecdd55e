package sched

import (
	"context"
	"sync"
	"time"

	"msgengine/internal/common"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const maxRetries = 3

// TickerScheduler is the default common.BackgroundScheduler: a plain
// in-process ticker plus deferred timers, with jittered backoff when a task
// reports OutcomeRetry. Hosts with a platform scheduler (WorkManager-style)
// plug their own implementation in instead.
type TickerScheduler struct {
	log *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTickerScheduler(log *zap.SugaredLogger) *TickerScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TickerScheduler{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *TickerScheduler) SchedulePeriodic(name string, interval time.Duration, task func(context.Context) common.TaskOutcome) func() {
	ctx, cancel := context.WithCancel(s.ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runWithRetry(ctx, name, task)
			case <-ctx.Done():
				return
			}
		}
	}()

	return cancel
}

func (s *TickerScheduler) ScheduleOnce(name string, delay time.Duration, task func(context.Context) common.TaskOutcome) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.runWithRetry(s.ctx, name, task)
		case <-s.ctx.Done():
		}
	}()
}

// runWithRetry delivers the at-least-once guarantee: a task that reports
// OutcomeRetry gets re-run with jittered backoff until it settles or the
// retry budget runs out.
func (s *TickerScheduler) runWithRetry(ctx context.Context, name string, task func(context.Context) common.TaskOutcome) {
	b := &backoff.Backoff{
		Min:    2 * time.Second,
		Max:    2 * time.Minute,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		outcome := task(ctx)
		switch outcome {
		case common.OutcomeOK:
			return
		case common.OutcomeFailed:
			s.log.Warnw("scheduled task failed permanently", "task", name, "attempt", attempt)
			return
		case common.OutcomeRetry:
			if attempt >= maxRetries {
				s.log.Warnw("scheduled task exhausted retries", "task", name, "attempts", attempt+1)
				return
			}
			delay := b.Duration()
			s.log.Debugw("scheduled task requested retry", "task", name, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Shutdown cancels every registered task and waits for them to finish.
func (s *TickerScheduler) Shutdown() {
	s.cancel()
	s.wg.Wait()
}
