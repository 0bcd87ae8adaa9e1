package kinectreader

import (
	"errors"
	"testing"
	"time"
)

func TestRunStateWaitsForStop(t *testing.T) {
	var s runState
	if err := s.start(); err != nil {
		t.Fatalf("start() error: %s", err)
	}

	waited := make(chan struct{})
	go func() {
		s.wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("wait() returned while running")
	case <-time.After(20 * time.Millisecond):
	}

	s.stop()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("wait() did not return after stop()")
	}
}

func TestRunStateWaitWhenIdle(t *testing.T) {
	var s runState

	done := make(chan struct{})
	go func() {
		s.wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait() blocked without a run")
	}
}

func TestRunStateSingleRun(t *testing.T) {
	var s runState
	if err := s.start(); err != nil {
		t.Fatalf("start() error: %s", err)
	}
	if err := s.start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	s.stop()
	if err := s.start(); err != nil {
		t.Errorf("start() after stop() error: %s", err)
	}
}
