package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clansite/internal/domain"
)

type recordingSweeper struct {
	mu    sync.Mutex
	calls int
	err   error
	done  chan struct{}
	stop  int
}

func (s *recordingSweeper) Cleanup(context.Context, time.Time) (domain.CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls == s.stop {
		close(s.done)
	}
	return domain.CleanupResult{RequestLogsDeleted: 1}, s.err
}

func (s *recordingSweeper) Now() time.Time {
	return time.Now()
}

func (s *recordingSweeper) SweepSessions(context.Context) (int, error) {
	_, err := s.Cleanup(context.Background(), time.Time{})
	return 1, err
}

func (s *recordingSweeper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestAdmissionSweepRunsImmediatelyAndOnTicks(t *testing.T) {
	sweeper := &recordingSweeper{done: make(chan struct{}), stop: 3}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	finished := make(chan struct{})
	go func() {
		StartAdmissionSweepRoutine(ctx, sweeper, nil, 10*time.Millisecond)
		close(finished)
	}()

	select {
	case <-sweeper.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweep ran %d times, want at least 3", sweeper.Calls())
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("routine did not stop after cancellation")
	}
}

func TestAdmissionSweepSurvivesErrors(t *testing.T) {
	sweeper := &recordingSweeper{done: make(chan struct{}), stop: 2, err: errors.New("database is locked")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go StartAdmissionSweepRoutine(ctx, sweeper, nil, 10*time.Millisecond)

	select {
	case <-sweeper.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep stopped after a failing run")
	}
}

func TestSessionSweepRoutine(t *testing.T) {
	sweeper := &recordingSweeper{done: make(chan struct{}), stop: 2}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go StartSessionSweepRoutine(ctx, sweeper, 10*time.Millisecond)

	select {
	case <-sweeper.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session sweep did not repeat")
	}
}

func TestResolveSweepInterval(t *testing.T) {
	t.Setenv(envSweepInterval, "")
	if got := ResolveSweepInterval(); got != defaultSweepInterval {
		t.Fatalf("default interval = %v, want %v", got, defaultSweepInterval)
	}

	t.Setenv(envSweepInterval, "45s")
	if got := ResolveSweepInterval(); got != 45*time.Second {
		t.Fatalf("interval = %v, want 45s", got)
	}

	t.Setenv(envSweepInterval, "10")
	if got := ResolveSweepInterval(); got != 10*time.Second {
		t.Fatalf("interval = %v, want 10s", got)
	}
}
