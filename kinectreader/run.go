package kinectreader

import (
	"errors"
	"sync"
)

var ErrAlreadyRunning = errors.New("kinect reader already running")

// runState lets Close wait until Run stopped touching the device.
type runState struct {
	mu   sync.Mutex
	done chan struct{}
}

func (s *runState) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyRunning
	}
	s.done = make(chan struct{})
	return nil
}

func (s *runState) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	close(s.done)
	s.done = nil
}

// wait blocks until the current run, if any, stopped.
func (s *runState) wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}
