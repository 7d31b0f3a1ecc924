// Package schedule triggers runs on a cron schedule, once at startup and on
// demand, never letting two runs overlap.
package schedule

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"

	"techup/lib/logger"
)

type RunFunc func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Scheduler struct {
	spec string
	run  RunFunc
	log  *logger.Logger

	// running is held for the whole duration of a run.
	running sync.Mutex
	wg      sync.WaitGroup
}

func New(spec string, run RunFunc, log *logger.Logger) (*Scheduler, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, run: run, log: log}, nil
}

// Trigger runs once unless a run is already in progress, in which case the
// trigger is dropped. It reports whether a run happened.
func (s *Scheduler) Trigger(ctx context.Context, reason string) bool {
	if !s.running.TryLock() {
		s.log.Warning("Skipping %s run: previous run still in progress", reason)
		return false
	}
	defer s.running.Unlock()

	s.log.Info("Starting %s run", reason)
	if err := s.run(ctx); err != nil {
		s.log.Error("%s run failed: %v", reason, err)
	}
	return true
}

func (s *Scheduler) goTrigger(ctx context.Context, reason string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Trigger(ctx, reason)
	}()
}

// Run starts with one run, then triggers on every schedule tick and on
// every value received from manual, until ctx is done. It waits for the
// run in progress before returning.
func (s *Scheduler) Run(ctx context.Context, manual <-chan os.Signal) error {
	cl := cronLogger{s.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.Trigger(ctx, "scheduled") }); err != nil {
		return fmt.Errorf("adding schedule: %w", err)
	}

	s.goTrigger(ctx, "startup")
	c.Start()
	s.log.Info("Scheduler started (%s), next run at %s", s.spec, c.Entries()[0].Next.Format("2006-01-02 15:04:05"))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping")
			<-c.Stop().Done()
			s.wg.Wait()
			return nil
		case sig := <-manual:
			s.log.Info("Received %v, triggering a run", sig)
			s.goTrigger(ctx, "manual")
		}
	}
}

// cronLogger adapts our logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
