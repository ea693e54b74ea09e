package repository

import (
	"context"
	"time"
)

// AudioSink receives raw audio in the exact order it was sent.
type AudioSink interface {
	WriteAudio(chunk []byte) error
}

// Recorder receives completed results of one session.
type Recorder interface {
	AppendUtterance(ctx context.Context, u Utterance) error
	AppendSentiment(ctx context.Context, s SentimentRecord) error
	WriteFinalTranscript(ctx context.Context, doc []byte) error
}

// Store is the session-scoped durable storage. Location reports where the
// artifacts ended up, which may be the shared data directory after a fallback.
type Store interface {
	Recorder
	AudioSink
	Location() string
	FellBack() bool
	Close() error
}

type StoreFactory interface {
	Open(sessionID string) (Store, error)
}

type StartSessionInput struct {
	SessionID string
	SourceURL string
	Dir       string
	StartedAt time.Time
}

type CompleteSessionInput struct {
	SessionID       string
	EndedAt         time.Time
	StopReason      string
	DurationSeconds float64
	AudioBytes      int64
}

// Journal keeps an index of sessions and their results outside the session
// directory. Mirror results are keyed by session through Bind.
type Journal interface {
	StartSession(ctx context.Context, input StartSessionInput) error
	CompleteSession(ctx context.Context, input CompleteSessionInput) error
	Bind(sessionID string) Recorder
}
