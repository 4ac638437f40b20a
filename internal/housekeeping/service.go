// Package housekeeping prunes old delivery audit entries on a schedule.
package housekeeping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"edspec/internal/clock"
	"edspec/pkg/logx"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule  = "@every 1h"
	DefaultRetention = 7 * 24 * time.Hour
	pruneTimeout     = time.Minute
)

// Pruner drops entries recorded before a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, before time.Time) (int64, error)
}

type Config struct {
	Schedule  string
	Retention time.Duration
}

type Service struct {
	store Pruner
	clk   clock.Clock
	log   logx.Logger

	sched     Schedule
	retention time.Duration

	mu sync.Mutex
	c  *cron.Cron

	runMu   sync.Mutex
	lastRun time.Time
	lastErr error
	pruned  int64
}

func New(cfg Config, store Pruner, clk clock.Clock, log logx.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("housekeeping: store required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	raw := cfg.Schedule
	if raw == "" {
		raw = DefaultSchedule
	}
	sched, err := ParseSchedule(raw)
	if err != nil {
		return nil, fmt.Errorf("housekeeping: %w", err)
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{
		store:     store,
		clk:       clk,
		log:       log.With(logx.String("comp", "housekeeping")),
		sched:     sched,
		retention: retention,
	}, nil
}

// Start begins triggering. It is a no-op when already started.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	cs, err := s.sched.cronSchedule()
	if err != nil {
		return err
	}
	s.c = cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.c.Schedule(cs, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}))
	s.c.Start()
	s.log.Info("service started", logx.String("schedule", s.sched.String()), logx.Duration("retention", s.retention))
	return nil
}

// Stop halts triggering and waits for a running prune until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("service stopped")
}

// RunOnce prunes entries older than the retention window.
func (s *Service) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.clk.Now().Add(-s.retention)
	n, err := s.store.PruneBefore(ctx, cutoff)

	s.runMu.Lock()
	s.lastRun = s.clk.Now()
	s.lastErr = err
	if err == nil {
		s.pruned += n
	}
	s.runMu.Unlock()

	if err != nil {
		s.log.Warn("prune failed", logx.Err(err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("pruned deliveries", logx.Int64("removed", n), logx.Time("before", cutoff))
	} else {
		s.log.Debug("nothing to prune", logx.Time("before", cutoff))
	}
	return n, nil
}

type Snapshot struct {
	Schedule  string        `json:"schedule"`
	Retention time.Duration `json:"retention"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Pruned    int64         `json:"pruned"`
}

func (s *Service) Snapshot() Snapshot {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	out := Snapshot{Schedule: s.sched.String(), Retention: s.retention, LastRun: s.lastRun, Pruned: s.pruned}
	if s.lastErr != nil {
		out.LastError = s.lastErr.Error()
	}
	return out
}
