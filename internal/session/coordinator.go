package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/console"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/transcriber"
)

var (
	ErrSendFailed     = errors.New("failed to send audio")
	ErrConnectionLost = errors.New("transcription connection lost")
)

const (
	defaultFinalEventTimeout   = 30 * time.Second
	defaultProducerJoinTimeout = 2 * time.Second
	persistTimeout             = 10 * time.Second
)

type StopReason string

const (
	StopReasonNone           StopReason = ""
	StopReasonInterrupted    StopReason = "interrupted"
	StopReasonCanceled       StopReason = "canceled"
	StopReasonSourceEnded    StopReason = "source_ended"
	StopReasonConnectionLost StopReason = "connection_lost"
	StopReasonRemoteClosed   StopReason = "remote_closed"
)

type Options struct {
	FinalEventTimeout   time.Duration
	ProducerJoinTimeout time.Duration
	ChunkBytes          int
	FinalizeOnSourceEnd bool
}

func (o Options) withDefaults() Options {
	if o.FinalEventTimeout <= 0 {
		o.FinalEventTimeout = defaultFinalEventTimeout
	}
	if o.ProducerJoinTimeout <= 0 {
		o.ProducerJoinTimeout = defaultProducerJoinTimeout
	}
	if o.ChunkBytes <= 0 {
		o.ChunkBytes = audio.DefaultChunkBytes
	}
	return o
}

// Sink receives everything a session produces.
type Sink interface {
	repository.Recorder
	repository.AudioSink
}

type Stats struct {
	AudioBytes      int64
	Chunks          int64
	Utterances      int64
	Sentiments      int64
	FinalReceived   bool
	UserInterrupted bool
	StopReason      StopReason
}

// Coordinator runs one live session: audio goes out on a producer goroutine
// while events are consumed on the goroutine that called Run.
type Coordinator struct {
	live       *transcriber.LiveSession
	credential string
	locator    string

	dialer  transcriber.Dialer
	source  audio.Source
	sink    Sink
	printer console.Printer
	opts    Options

	state *State

	producerStarted atomic.Bool
	producerDone    chan struct{}
	shutdownDone    chan struct{}

	streamMu     sync.Mutex
	stream       io.ReadCloser
	streamClosed bool

	reasonMu   sync.Mutex
	stopReason StopReason

	audioWriteFailOnce sync.Once

	audioBytes atomic.Int64
	chunks     atomic.Int64
	utterances atomic.Int64
	sentiments atomic.Int64
}

func NewCoordinator(live *transcriber.LiveSession, credential, locator string, dialer transcriber.Dialer, source audio.Source, sink Sink, printer console.Printer, opts Options) *Coordinator {
	return &Coordinator{
		live:         live,
		credential:   credential,
		locator:      locator,
		dialer:       dialer,
		source:       source,
		sink:         sink,
		printer:      printer,
		opts:         opts.withDefaults(),
		state:        NewState(),
		producerDone: make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

func (c *Coordinator) State() *State {
	return c.state
}

// Run blocks until the session is over. Cancelling ctx starts the shutdown
// protocol as an interrupt would.
func (c *Coordinator) Run(ctx context.Context) error {
	stopWatching := context.AfterFunc(ctx, func() {
		c.shutdown(StopReasonCanceled)
	})
	defer stopWatching()

	slog.Info("connecting to transcription service", "session_id", c.live.ID)
	conn, err := c.dialer.Dial(c.state.StopContext(), c.live.URL, c.credential)
	if err != nil {
		if c.state.ShuttingDown() {
			<-c.shutdownDone
			return nil
		}
		slog.Error("failed to connect to transcription service", "error", err, "session_id", c.live.ID)
		c.printer.Error(fmt.Sprintf(messageConnectFailed, err))
		c.finishWithoutConnection(StopReasonConnectionLost)
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	if !c.state.SetConn(conn) {
		_ = conn.Close()
		<-c.shutdownDone
		return nil
	}
	slog.Info("connected to transcription service", "session_id", c.live.ID)

	c.producerStarted.Store(true)
	go c.produce(conn)

	recvErr := c.consume(conn)

	if !c.state.BeginShutdown() {
		<-c.shutdownDone
		return nil
	}

	// The connection loop ended without anyone asking for it.
	reason := StopReasonConnectionLost
	if c.state.FinalReceived() {
		reason = StopReasonRemoteClosed
	}
	c.setStopReason(reason)
	c.windDown()
	if reason == StopReasonRemoteClosed {
		slog.Info("transcription service closed the connection", "session_id", c.live.ID)
		return nil
	}
	c.printer.Error(fmt.Sprintf(messageConnectionLost, recvErr))
	return fmt.Errorf("%w: %w", ErrConnectionLost, recvErr)
}

// Shutdown runs the shutdown protocol on behalf of the user. Only the first call
// does anything; later calls return immediately.
func (c *Coordinator) Shutdown() {
	c.shutdown(StopReasonInterrupted)
}

func (c *Coordinator) shutdown(reason StopReason) {
	if !c.state.BeginShutdown() {
		return
	}
	c.setStopReason(reason)
	if reason == StopReasonInterrupted {
		c.state.MarkUserInterrupted()
	}
	slog.Info("shutting down session", "session_id", c.live.ID, "reason", reason)

	if conn := c.state.Conn(); conn != nil {
		// Sending end_recording and waiting for the final event share one budget.
		deadline := time.Now().Add(c.opts.FinalEventTimeout)
		if !c.sendEndRecording(conn, deadline) {
			slog.Debug("skipping final transcript wait", "session_id", c.live.ID)
		} else if c.state.WaitFinal(time.Until(deadline)) {
			slog.Info("final transcript received", "session_id", c.live.ID)
		} else {
			c.printer.Warn(fmt.Sprintf(messageFinalTimeout, c.opts.FinalEventTimeout))
		}
	}

	c.windDown()
}

// sendEndRecording gives up at deadline when the write is stuck behind a peer
// that stopped reading; windDown then closes the connection under it.
func (c *Coordinator) sendEndRecording(conn transcriber.Conn, deadline time.Time) bool {
	elapsed := c.state.Elapsed().Seconds()
	sent := make(chan error, 1)
	go func() {
		sent <- conn.SendEndRecording(c.live.ID, elapsed)
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case err := <-sent:
		if err != nil {
			slog.Debug("failed to send end_recording", "error", err, "session_id", c.live.ID)
			return false
		}
		return true
	case <-timer.C:
		slog.Warn("end_recording not sent in time", "session_id", c.live.ID, "timeout", c.opts.FinalEventTimeout)
		c.printer.Warn(fmt.Sprintf(messageEndRecordingStalled, c.opts.FinalEventTimeout))
		return false
	}
}

func (c *Coordinator) finishWithoutConnection(reason StopReason) {
	if !c.state.BeginShutdown() {
		<-c.shutdownDone
		return
	}
	c.setStopReason(reason)
	c.windDown()
}

// windDown is only reached by the goroutine that won BeginShutdown.
func (c *Coordinator) windDown() {
	c.state.RequestStop()
	c.joinProducer()
	c.closeConn()
	c.closeStream()
	c.state.MarkStopped()
	close(c.shutdownDone)
	slog.Info("session stopped", "session_id", c.live.ID, "reason", c.StopReason())
}

func (c *Coordinator) joinProducer() {
	if !c.producerStarted.Load() {
		return
	}
	timer := time.NewTimer(c.opts.ProducerJoinTimeout)
	defer timer.Stop()
	select {
	case <-c.producerDone:
	case <-timer.C:
		slog.Warn("audio producer did not stop in time", "session_id", c.live.ID, "timeout", c.opts.ProducerJoinTimeout)
	}
}

func (c *Coordinator) closeConn() {
	conn := c.state.TakeConn()
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Debug("failed to close transcription connection", "error", err, "session_id", c.live.ID)
	}
}

func (c *Coordinator) setStream(stream io.ReadCloser) bool {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.streamClosed {
		return false
	}
	c.stream = stream
	return true
}

func (c *Coordinator) closeStream() {
	c.streamMu.Lock()
	stream := c.stream
	c.stream = nil
	c.streamClosed = true
	c.streamMu.Unlock()
	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		slog.Debug("failed to close audio source", "error", err, "session_id", c.live.ID)
	}
}

func (c *Coordinator) setStopReason(reason StopReason) {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	if c.stopReason == StopReasonNone {
		c.stopReason = reason
	}
}

func (c *Coordinator) StopReason() StopReason {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	return c.stopReason
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		AudioBytes:      c.audioBytes.Load(),
		Chunks:          c.chunks.Load(),
		Utterances:      c.utterances.Load(),
		Sentiments:      c.sentiments.Load(),
		FinalReceived:   c.state.FinalReceived(),
		UserInterrupted: c.state.UserInterrupted(),
		StopReason:      c.StopReason(),
	}
}

func (c *Coordinator) persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}
