// Package scheduler runs the monitors one after another in cycles.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bike_monitor/internal/config"
	"bike_monitor/internal/model"
)

// ErrUnknownMonitor is returned for names that match no monitor.
var ErrUnknownMonitor = errors.New("unknown monitor")

// Monitor is a search the scheduler runs.
type Monitor interface {
	Name() string
	RunCycle(ctx context.Context) model.CycleReport
	Status() model.MonitorStatus
	Paused() bool
	Pause()
	Resume()
}

// Scheduler runs every monitor once per cycle and sleeps between cycles for
// the interval in effect at that time of day.
type Scheduler struct {
	monitors     []Monitor
	intervals    *config.IntervalTable
	monitorDelay time.Duration
	startupDelay time.Duration
	trigger      chan Monitor
	log          *slog.Logger
	now          func() time.Time
}

// New creates a Scheduler for monitors.
func New(monitors []Monitor, intervals *config.IntervalTable, log *slog.Logger) *Scheduler {
	return &Scheduler{
		monitors:  monitors,
		intervals: intervals,
		trigger:   make(chan Monitor, len(monitors)),
		log:       log,
		now:       time.Now,
	}
}

// SetDelays sets the pause between two monitors of a cycle and the pause
// before the first cycle.
func (s *Scheduler) SetDelays(monitorDelay, startupDelay time.Duration) {
	s.monitorDelay = monitorDelay
	s.startupDelay = startupDelay
}

// Run starts the cycle loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "monitors", len(s.monitors), "startup_delay", s.startupDelay)
	if !s.wait(ctx, s.startupDelay) {
		return
	}

	for {
		s.runAll(ctx)
		if ctx.Err() != nil {
			return
		}

		interval := s.intervals.At(s.now())
		s.log.Info("cycle finished, sleeping", "interval", interval)
		if !s.wait(ctx, interval) {
			return
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	ran := 0
	for _, m := range s.monitors {
		if ctx.Err() != nil {
			return
		}
		if m.Paused() {
			s.log.Debug("monitor paused, skipping", "monitor", m.Name())
			continue
		}
		if ran > 0 && !sleep(ctx, s.monitorDelay) {
			return
		}
		s.runOne(ctx, m)
		ran++
	}
}

func (s *Scheduler) runOne(ctx context.Context, m Monitor) {
	s.log.Debug("running monitor", "monitor", m.Name())
	report := m.RunCycle(ctx)
	if report.Err != nil {
		s.log.Warn("monitor cycle failed", "monitor", m.Name(), "error", report.Err)
	}
}

// wait sleeps for d, running triggered monitors meanwhile. It returns false
// when ctx is cancelled.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case m := <-s.trigger:
			s.runOne(ctx, m)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Scheduler) find(name string) (Monitor, error) {
	for _, m := range s.monitors {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownMonitor, name)
}

// Statuses returns the state of every monitor in run order.
func (s *Scheduler) Statuses() []model.MonitorStatus {
	out := make([]model.MonitorStatus, len(s.monitors))
	for i, m := range s.monitors {
		out[i] = m.Status()
	}
	return out
}

// Pause stops running the named monitor.
func (s *Scheduler) Pause(name string) error {
	m, err := s.find(name)
	if err != nil {
		return err
	}
	m.Pause()
	s.log.Info("monitor paused", "monitor", name)
	return nil
}

// Resume runs the named monitor again from the next cycle on.
func (s *Scheduler) Resume(name string) error {
	m, err := s.find(name)
	if err != nil {
		return err
	}
	m.Resume()
	s.log.Info("monitor resumed", "monitor", name)
	return nil
}

// Trigger queues a run of the named monitor, which starts as soon as the
// scheduler is between cycles. Paused monitors run too.
func (s *Scheduler) Trigger(name string) error {
	m, err := s.find(name)
	if err != nil {
		return err
	}
	select {
	case s.trigger <- m:
		s.log.Info("monitor check queued", "monitor", name)
		return nil
	default:
		return fmt.Errorf("check queue full, %q not queued", name)
	}
}
