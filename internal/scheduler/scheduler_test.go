package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"bike_monitor/internal/config"
	"bike_monitor/internal/model"
)

type runLog struct {
	mu    sync.Mutex
	order []string
}

func (l *runLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *runLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]string, len(l.order))
	copy(cp, l.order)
	return cp
}

type mockMonitor struct {
	name string
	runs *runLog
	err  error

	mu     sync.Mutex
	paused bool
	onRun  func()
}

func (m *mockMonitor) Name() string { return m.name }

func (m *mockMonitor) RunCycle(_ context.Context) model.CycleReport {
	m.runs.add(m.name)
	if m.onRun != nil {
		m.onRun()
	}
	return model.CycleReport{Err: m.err}
}

func (m *mockMonitor) Status() model.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.MonitorStatus{Name: m.name, Paused: m.paused}
}

func (m *mockMonitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockMonitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *mockMonitor) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
}

func newTestScheduler(base time.Duration, monitors ...Monitor) *Scheduler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(monitors, &config.IntervalTable{Base: base}, log)
}

func TestRunAllSequentialSkipsPaused(t *testing.T) {
	runs := &runLog{}
	a := &mockMonitor{name: "a", runs: runs}
	b := &mockMonitor{name: "b", runs: runs, paused: true}
	c := &mockMonitor{name: "c", runs: runs, err: errors.New("scrape failed")}

	sched := newTestScheduler(time.Hour, a, b, c)
	sched.runAll(context.Background())

	if diff := cmp.Diff([]string{"a", "c"}, runs.get()); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAllCancelledContext(t *testing.T) {
	runs := &runLog{}
	sched := newTestScheduler(time.Hour, &mockMonitor{name: "a", runs: runs})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched.runAll(ctx)

	if diff := cmp.Diff(0, len(runs.get())); diff != "" {
		t.Errorf("expected no runs when context cancelled (-want +got):\n%s", diff)
	}
}

func TestRunAllStopsDuringMonitorDelay(t *testing.T) {
	runs := &runLog{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := &mockMonitor{name: "a", runs: runs, onRun: cancel}
	b := &mockMonitor{name: "b", runs: runs}
	sched := newTestScheduler(time.Hour, a, b)
	sched.SetDelays(time.Hour, 0)

	done := make(chan struct{})
	go func() {
		sched.runAll(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runAll did not stop during the monitor delay")
	}
	if diff := cmp.Diff([]string{"a"}, runs.get()); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRepeatsCycles(t *testing.T) {
	runs := &runLog{}
	sched := newTestScheduler(10*time.Millisecond,
		&mockMonitor{name: "a", runs: runs},
		&mockMonitor{name: "b", runs: runs},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}

	got := runs.get()
	if len(got) < 4 {
		t.Fatalf("expected at least two cycles, got %v", got)
	}
	if diff := cmp.Diff([]string{"a", "b", "a", "b"}, got[:4]); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStopsDuringStartupDelay(t *testing.T) {
	runs := &runLog{}
	sched := newTestScheduler(time.Hour, &mockMonitor{name: "a", runs: runs})
	sched.SetDelays(0, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	if diff := cmp.Diff(0, len(runs.get())); diff != "" {
		t.Errorf("expected no runs before the startup delay elapsed (-want +got):\n%s", diff)
	}
}

func TestTriggerRunsBetweenCycles(t *testing.T) {
	runs := &runLog{}
	a := &mockMonitor{name: "a", runs: runs}
	b := &mockMonitor{name: "b", runs: runs, paused: true}
	sched := newTestScheduler(time.Hour, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(runs.get()) < 1 {
		select {
		case <-deadline:
			t.Fatal("first cycle did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := sched.Trigger("b"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	for len(runs.get()) < 2 {
		select {
		case <-deadline:
			t.Fatal("triggered monitor did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if diff := cmp.Diff([]string{"a", "b"}, runs.get()); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestController(t *testing.T) {
	runs := &runLog{}
	a := &mockMonitor{name: "a", runs: runs}
	sched := newTestScheduler(time.Hour, a)

	if err := sched.Pause("a"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !a.Paused() {
		t.Error("expected a to be paused")
	}
	want := []model.MonitorStatus{{Name: "a", Paused: true}}
	if diff := cmp.Diff(want, sched.Statuses()); diff != "" {
		t.Errorf("Statuses() mismatch (-want +got):\n%s", diff)
	}

	if err := sched.Resume("a"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if a.Paused() {
		t.Error("expected a to be resumed")
	}

	for _, op := range []func(string) error{sched.Pause, sched.Resume, sched.Trigger} {
		if err := op("zz"); !errors.Is(err, ErrUnknownMonitor) {
			t.Errorf("expected ErrUnknownMonitor, got %v", err)
		}
	}

	if err := sched.Trigger("a"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := sched.Trigger("a"); err == nil {
		t.Error("expected an error when the trigger queue is full")
	}
}
