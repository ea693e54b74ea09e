package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestState_BeginShutdownOnlyOnce(t *testing.T) {
	s := NewState()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginShutdown() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	if !s.ShuttingDown() {
		t.Fatal("expected shutdown in progress")
	}
	if s.BeginShutdown() {
		t.Fatal("shutdown must never be entered twice")
	}
}

func TestState_WaitFinal(t *testing.T) {
	s := NewState()
	if s.WaitFinal(20 * time.Millisecond) {
		t.Fatal("expected timeout before final event")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.MarkFinalReceived()
	}()
	if !s.WaitFinal(time.Second) {
		t.Fatal("expected final event to be observed")
	}
	s.MarkFinalReceived()
	if !s.FinalReceived() {
		t.Fatal("final flag must stay set")
	}
}

func TestState_StopRequest(t *testing.T) {
	s := NewState()
	if s.StopRequested() {
		t.Fatal("stop must not be requested initially")
	}
	s.RequestStop()
	s.RequestStop()
	if !s.StopRequested() {
		t.Fatal("expected stop to be requested")
	}
	select {
	case <-s.StopContext().Done():
	default:
		t.Fatal("expected stop context to be cancelled")
	}
}

func TestState_SetConnRefusedAfterStop(t *testing.T) {
	s := NewState()
	conn := newFakeConn()
	if !s.SetConn(conn) {
		t.Fatal("expected connection to be installed")
	}
	if s.TakeConn() != conn {
		t.Fatal("expected installed connection")
	}
	if s.TakeConn() != nil {
		t.Fatal("connection must only be taken once")
	}

	s.RequestStop()
	if s.SetConn(newFakeConn()) {
		t.Fatal("connection must be refused after stop")
	}
	if s.Conn() != nil {
		t.Fatal("refused connection must not be stored")
	}
}

func TestState_Phase(t *testing.T) {
	s := NewState()
	if s.Phase() != PhaseRunning {
		t.Fatalf("unexpected phase: %s", s.Phase())
	}
	s.BeginShutdown()
	if s.Phase() != PhaseShuttingDown {
		t.Fatalf("unexpected phase: %s", s.Phase())
	}
	s.MarkStopped()
	if s.Phase() != PhaseStopped {
		t.Fatalf("unexpected phase: %s", s.Phase())
	}
}

func TestState_UserInterrupted(t *testing.T) {
	s := NewState()
	if s.UserInterrupted() {
		t.Fatal("unexpected interrupt flag")
	}
	s.MarkUserInterrupted()
	if !s.UserInterrupted() {
		t.Fatal("expected interrupt flag")
	}
	if s.Elapsed() < 0 || s.StartedAt().IsZero() {
		t.Fatal("unexpected start time")
	}
}
