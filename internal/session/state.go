package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/livescribe/internal/transcriber"
)

type Phase int

const (
	PhaseRunning Phase = iota
	PhaseShuttingDown
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is shared by the producer, the consumer and whoever triggers shutdown.
// Every flag only moves from false to true.
type State struct {
	startedAt time.Time

	stopCtx context.Context
	stop    context.CancelFunc

	userInterrupted    atomic.Bool
	shutdownInProgress atomic.Bool
	stopped            atomic.Bool

	finalCh   chan struct{}
	finalOnce sync.Once

	mu   sync.Mutex
	conn transcriber.Conn
}

func NewState() *State {
	stopCtx, stop := context.WithCancel(context.Background())
	return &State{
		startedAt: time.Now(),
		stopCtx:   stopCtx,
		stop:      stop,
		finalCh:   make(chan struct{}),
	}
}

// BeginShutdown reports whether the caller won the single transition into
// shutdown.
func (s *State) BeginShutdown() bool {
	return s.shutdownInProgress.CompareAndSwap(false, true)
}

func (s *State) ShuttingDown() bool {
	return s.shutdownInProgress.Load()
}

func (s *State) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *State) StopRequested() bool {
	return s.stopCtx.Err() != nil
}

// StopContext is cancelled once stop is requested.
func (s *State) StopContext() context.Context {
	return s.stopCtx
}

func (s *State) MarkUserInterrupted() {
	s.userInterrupted.Store(true)
}

func (s *State) UserInterrupted() bool {
	return s.userInterrupted.Load()
}

func (s *State) MarkFinalReceived() {
	s.finalOnce.Do(func() {
		close(s.finalCh)
	})
}

func (s *State) FinalReceived() bool {
	select {
	case <-s.finalCh:
		return true
	default:
		return false
	}
}

// WaitFinal blocks until the final event arrives or timeout elapses.
func (s *State) WaitFinal(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.finalCh:
		return true
	case <-timer.C:
		return s.FinalReceived()
	}
}

// SetConn installs the connection. It refuses once stop has been requested so a
// dial that finishes late cannot outlive the shutdown.
func (s *State) SetConn(conn transcriber.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCtx.Err() != nil {
		return false
	}
	s.conn = conn
	return true
}

func (s *State) Conn() transcriber.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// TakeConn clears the handle and returns what was there, so exactly one caller
// gets to close it.
func (s *State) TakeConn() transcriber.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.conn
	s.conn = nil
	return conn
}

func (s *State) MarkStopped() {
	s.stopped.Store(true)
}

func (s *State) Phase() Phase {
	switch {
	case s.stopped.Load():
		return PhaseStopped
	case s.shutdownInProgress.Load():
		return PhaseShuttingDown
	default:
		return PhaseRunning
	}
}

func (s *State) StartedAt() time.Time {
	return s.startedAt
}

func (s *State) Elapsed() time.Duration {
	return time.Since(s.startedAt)
}
