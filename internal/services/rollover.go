package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dailyledger/internal/log"
)

// RolloverChecker is what the scheduler drives. SessionService implements it.
type RolloverChecker interface {
	CheckRollover(ctx context.Context) (bool, error)
}

// RolloverScheduler polls for a calendar day change on a fixed interval and
// once more at local midnight. Polling keeps the reset correct across
// suspend, clock changes and DST, where a single midnight timer would miss.
type RolloverScheduler struct {
	cron     *cron.Cron
	checker  RolloverChecker
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
}

func NewRolloverScheduler(checker RolloverChecker, interval time.Duration, loc *time.Location, logger *log.Logger) (*RolloverScheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentRollover)
	cl := cronLogger{logger}

	s := &RolloverScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}

	for _, spec := range []string{fmt.Sprintf("@every %s", interval), "@midnight"} {
		if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", spec, err)
		}
	}
	return s, nil
}

// Start runs the schedule until ctx ends or Stop is called.
func (s *RolloverScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Rollover scheduler started", "interval", s.interval.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the schedule and waits for a running check to finish.
func (s *RolloverScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Rollover scheduler stopped")
}

// IsRunning reports whether the schedule is active. Readiness depends on it.
func (s *RolloverScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RolloverScheduler) tick() {
	if _, err := s.checker.CheckRollover(context.Background()); err != nil {
		s.logger.Error("Rollover check failed", log.FieldError, err.Error())
	}
}

// cronLogger routes cron's own messages into our logger.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
