package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/repository"
	"github.com/foxseedlab/livescribe/internal/transcriber"
)

const (
	postFinalEvent    = `{"type":"post_final_transcript","data":{"metadata":{"audio_duration":3}}}`
	finalTranscript   = `{"type":"transcript","data":{"is_final":true,"utterance":{"start":65.5,"end":70.125,"text":" hello world "}}}`
	partialTranscript = `{"type":"transcript","data":{"is_final":false,"utterance":{"start":65.5,"end":66,"text":"hel"}}}`
	sentimentEvent    = `{"type":"sentiment_analysis","data":{"results":[{"sentiment":"positive","emotion":"joy","start":1,"end":2,"text":"great"},{"sentiment":"neutral","emotion":"calm","start":2,"end":3,"text":"ok"}]}}`
)

type fakeConn struct {
	mu            sync.Mutex
	frames        [][]byte
	endRecordings []float64
	sendErr       error
	endErr        error
	// endBlocks makes end_recording hang until the connection is closed.
	endBlocks bool

	// onEndRecording runs after end_recording has been recorded.
	onEndRecording func(c *fakeConn)

	incoming   chan []byte
	closed     chan struct{}
	closeOnce  sync.Once
	closeCalls atomic.Int32
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakeConn) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	select {
	case <-f.closed:
		return transcriber.ErrConnectionClosed
	default:
	}
	f.frames = append(f.frames, append([]byte(nil), chunk...))
	return nil
}

func (f *fakeConn) SendEndRecording(_ string, recordingDurationSec float64) error {
	f.mu.Lock()
	f.endRecordings = append(f.endRecordings, recordingDurationSec)
	err := f.endErr
	hook := f.onEndRecording
	blocks := f.endBlocks
	f.mu.Unlock()
	if blocks {
		<-f.closed
		return transcriber.ErrConnectionClosed
	}
	if err != nil {
		return err
	}
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *fakeConn) Receive() ([]byte, error) {
	// Drain queued events before reporting a close.
	select {
	case raw := <-f.incoming:
		return raw, nil
	default:
	}
	select {
	case raw := <-f.incoming:
		return raw, nil
	case <-f.closed:
		return nil, transcriber.ErrConnectionClosed
	}
}

func (f *fakeConn) Close() error {
	f.closeCalls.Add(1)
	f.drop()
	return nil
}

// drop simulates the remote side going away.
func (f *fakeConn) drop() {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
}

func (f *fakeConn) push(events ...string) {
	for _, ev := range events {
		f.incoming <- []byte(ev)
	}
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeConn) sentBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Join(f.frames, nil)
}

func (f *fakeConn) endRecordingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.endRecordings)
}

func replyWithFinal(c *fakeConn) {
	c.push(postFinalEvent)
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	dials atomic.Int32
}

func (d *fakeDialer) Dial(_ context.Context, _, _ string) (transcriber.Conn, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

// fakeSource yields data and then either ends or blocks until the stream is
// stopped, like a live source would.
type fakeSource struct {
	data    []byte
	live    bool
	err     error
	readErr error
	opens   atomic.Int32
}

func (s *fakeSource) Open(ctx context.Context, _ string) (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &fakeStream{ctx: ctx, r: bytes.NewReader(s.data), live: s.live, readErr: s.readErr, closed: make(chan struct{})}, nil
}

type fakeStream struct {
	ctx       context.Context
	r         *bytes.Reader
	live      bool
	readErr   error
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *fakeStream) Read(p []byte) (int, error) {
	if s.r.Len() > 0 {
		return s.r.Read(p)
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	if !s.live {
		return 0, io.EOF
	}
	select {
	case <-s.ctx.Done():
	case <-s.closed:
	}
	return 0, io.EOF
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

// endlessSource produces byte(i % 251) forever, a little at a time.
type endlessSource struct{}

func (endlessSource) Open(ctx context.Context, _ string) (io.ReadCloser, error) {
	return &endlessStream{ctx: ctx}, nil
}

type endlessStream struct {
	ctx context.Context
	pos int
}

func (s *endlessStream) Read(p []byte) (int, error) {
	select {
	case <-s.ctx.Done():
		return 0, io.EOF
	case <-time.After(time.Millisecond):
	}
	n := min(len(p), 1000)
	for i := range n {
		p[i] = byte((s.pos + i) % 251)
	}
	s.pos += n
	return n, nil
}

func (s *endlessStream) Close() error { return nil }

// stuckSource ignores cancellation and only returns once closed.
type stuckSource struct {
	stream *fakeStream
}

func (s *stuckSource) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	s.stream = &fakeStream{ctx: context.Background(), r: bytes.NewReader(nil), live: true, closed: make(chan struct{})}
	return s.stream, nil
}

type fakeSink struct {
	mu           sync.Mutex
	utterances   []repository.Utterance
	sentiments   []repository.SentimentRecord
	finals       [][]byte
	audio        bytes.Buffer
	utteranceErr error
}

func (s *fakeSink) AppendUtterance(_ context.Context, u repository.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.utteranceErr != nil {
		return s.utteranceErr
	}
	s.utterances = append(s.utterances, u)
	return nil
}

func (s *fakeSink) AppendSentiment(_ context.Context, r repository.SentimentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiments = append(s.sentiments, r)
	return nil
}

func (s *fakeSink) WriteFinalTranscript(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finals = append(s.finals, append([]byte(nil), doc...))
	return nil
}

func (s *fakeSink) WriteAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.audio.Write(chunk)
	return err
}

func (s *fakeSink) audioBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.audio.Bytes()...)
}

func (s *fakeSink) counts() (utterances, sentiments, finals int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.utterances), len(s.sentiments), len(s.finals)
}

type fakeStore struct {
	fakeSink
	dir      string
	fellBack bool
	closed   atomic.Bool
}

func (s *fakeStore) Location() string { return s.dir }
func (s *fakeStore) FellBack() bool   { return s.fellBack }
func (s *fakeStore) Close() error {
	s.closed.Store(true)
	return nil
}

type fakePrinter struct {
	mu         sync.Mutex
	infos      []string
	warns      []string
	errs       []string
	utterances []repository.Utterance
	sentiments []repository.SentimentRecord
	finals     int
}

func (p *fakePrinter) Info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.infos = append(p.infos, msg)
}

func (p *fakePrinter) Warn(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warns = append(p.warns, msg)
}

func (p *fakePrinter) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, msg)
}

func (p *fakePrinter) Utterance(u repository.Utterance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.utterances = append(p.utterances, u)
}

func (p *fakePrinter) Sentiment(s repository.SentimentRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sentiments = append(p.sentiments, s)
}

func (p *fakePrinter) FinalTranscript(_ []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finals++
}

func (p *fakePrinter) errorsContaining(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.errs {
		if strings.Contains(e, substr) {
			n++
		}
	}
	return n
}

func (p *fakePrinter) errorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errs)
}

func (p *fakePrinter) hasInfo(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.infos {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (p *fakePrinter) hasWarn(substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.warns {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

var errSendBroken = errors.New("broken pipe")

func testOptions() Options {
	return Options{
		FinalEventTimeout:   2 * time.Second,
		ProducerJoinTimeout: 500 * time.Millisecond,
		ChunkBytes:          4096,
	}
}

func newTestCoordinator(conn *fakeConn, source audio.Source, sink Sink, printer *fakePrinter, opts Options) (*Coordinator, *fakeDialer) {
	dialer := &fakeDialer{conn: conn}
	live := &transcriber.LiveSession{ID: "session-1", URL: "wss://example.invalid/live"}
	return NewCoordinator(live, "key", "https://example.com/live", dialer, source, sink, printer, opts), dialer
}

func runAsync(ctx context.Context, c *Coordinator) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()
	return done
}

func waitRun(t *testing.T, done <-chan error, timeout time.Duration) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatalf("coordinator did not return within %s", timeout)
		return nil
	}
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
