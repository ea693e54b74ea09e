package audio

import (
	"context"
	"errors"
	"io"
)

const (
	SampleRateHertz   = 16000
	BitDepth          = 16
	ChannelCount      = 1
	DefaultChunkBytes = 4096
	BytesPerSecond    = SampleRateHertz * BitDepth / 8 * ChannelCount
)

var ErrSourceUnavailable = errors.New("audio source unavailable")

// Source opens a live stream of mono 16 kHz signed 16-bit little-endian PCM.
// Read on the returned stream blocks until data is available and returns
// io.EOF once the source ends or the stream is closed. Close is idempotent.
type Source interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}
