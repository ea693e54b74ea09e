package transcriber

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSessionInitFailed = errors.New("transcription session init failed")
	ErrConnectionClosed  = errors.New("transcription connection closed")
)

// SessionInitError is returned when the provider refuses to create a live session.
type SessionInitError struct {
	StatusCode int
	Body       string
}

func (e *SessionInitError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transcription session init failed: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("transcription session init failed: http status %d: %s", e.StatusCode, e.Body)
}

func (e *SessionInitError) Is(target error) bool {
	return target == ErrSessionInitFailed
}

// LiveSession is what the provider hands back when a session is negotiated.
type LiveSession struct {
	ID  string
	URL string
}

type Negotiator interface {
	InitSession(ctx context.Context) (*LiveSession, error)
}

// Conn is one persistent duplex connection. SendAudio and SendEndRecording may
// be called concurrently with each other and with Receive. Receive returns an
// error wrapping ErrConnectionClosed once the connection is gone.
type Conn interface {
	SendAudio(chunk []byte) error
	SendEndRecording(sessionID string, recordingDurationSec float64) error
	Receive() ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint, credential string) (Conn, error)
}
