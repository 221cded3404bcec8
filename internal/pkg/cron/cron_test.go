package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitForStatus(t *testing.T, s *Scheduler, name string, want JobStatus) ListItem {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, item := range s.List() {
			if item.Name == name && item.Status == want {
				return item
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q never reached status %q", name, want)
	return ListItem{}
}

func TestManualRunRecordsOutcome(t *testing.T) {
	s := New()
	var calls atomic.Int32
	s.Register(Job{
		Name:     "ok",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})
	s.Register(Job{
		Name:     "broken",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			return errors.New("boom")
		},
	})

	if err := s.Run(context.Background(), "ok"); err != nil {
		t.Fatalf("run: %v", err)
	}
	item := waitForStatus(t, s, "ok", StatusFulfill)
	if item.LastRunAt == nil {
		t.Fatal("LastRunAt not recorded")
	}
	if calls.Load() != 1 {
		t.Fatalf("job ran %d times, want 1", calls.Load())
	}

	if err := s.Run(context.Background(), "broken"); err != nil {
		t.Fatalf("run broken: %v", err)
	}
	waitForStatus(t, s, "broken", StatusReject)
}

func TestRunUnknownJob(t *testing.T) {
	s := New()
	if err := s.Run(context.Background(), "missing"); err == nil {
		t.Fatal("running an unregistered job should fail")
	}
}

func TestStartRespectsInterval(t *testing.T) {
	s := New()
	var calls atomic.Int32
	s.Register(Job{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(90 * time.Millisecond)
	cancel()

	got := calls.Load()
	if got < 2 {
		t.Fatalf("job ran %d times in 90ms with a 20ms interval", got)
	}
	time.Sleep(50 * time.Millisecond)
	if after := calls.Load(); after > got+1 {
		t.Fatalf("job kept running after cancel: %d -> %d", got, after)
	}
}
