package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCronSchedulerRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every tuesday", nil, nil)
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected invalid spec error")
	}
}

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan time.Time, 4)
	s := NewCronScheduler("@every 1s", time.UTC, nil)
	if err := s.Start(ctx, func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case at := <-fired:
		if at.Location() != time.UTC {
			t.Fatalf("trigger time not in scheduler location: %v", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestCronSchedulerStopIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("0 * * * *", nil, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCronSchedulerLogsRecoveredPanicsToSlog(t *testing.T) {
	t.Parallel()

	out := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewCronScheduler("@every 1s", time.UTC, logger)
	if err := s.Start(ctx, func(time.Time) { panic("boom") }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if logged := out.String(); strings.Contains(logged, "level=ERROR") && strings.Contains(logged, "boom") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("recovered panic was not logged through slog:\n%s", out.String())
}

func TestSlogAdapterError(t *testing.T) {
	t.Parallel()

	out := &lockedBuffer{}
	adapter := slogAdapter{logger: slog.New(slog.NewTextHandler(out, nil))}
	adapter.Error(errors.New("bad job"), "panic", "stack", "trace")

	logged := out.String()
	if !strings.Contains(logged, "msg=panic") || !strings.Contains(logged, `error="bad job"`) || !strings.Contains(logged, "stack=trace") {
		t.Fatalf("unexpected log line: %s", logged)
	}
}
