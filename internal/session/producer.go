package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/foxseedlab/livescribe/internal/audio"
	"github.com/foxseedlab/livescribe/internal/transcriber"
)

func (c *Coordinator) produce(conn transcriber.Conn) {
	defer close(c.producerDone)

	if c.pump(conn) && c.opts.FinalizeOnSourceEnd {
		// shutdown joins the producer, so it cannot run on this goroutine.
		go c.shutdown(StopReasonSourceEnded)
	}
}

// pump streams the source until it ends, stop is requested or a send fails.
// It reports whether the source ran out on its own.
func (c *Coordinator) pump(conn transcriber.Conn) bool {
	if c.state.StopRequested() {
		return false
	}
	stream, err := c.source.Open(c.state.StopContext(), c.locator)
	if err != nil {
		if c.state.StopRequested() {
			return false
		}
		slog.Error("failed to open audio source", "error", err, "session_id", c.live.ID)
		if !c.state.ShuttingDown() {
			c.printer.Error(fmt.Sprintf(messageSourceUnavailable, err))
		}
		return true
	}
	if !c.setStream(stream) {
		_ = stream.Close()
		return false
	}
	defer c.closeStream()
	slog.Info("audio source opened", "session_id", c.live.ID)

	buf := make([]byte, c.opts.ChunkBytes)
	for {
		if c.state.StopRequested() {
			return false
		}
		n, readErr := io.ReadFull(stream, buf)
		if n > 0 {
			if c.state.StopRequested() {
				return false
			}
			if !c.send(conn, buf[:n]) {
				return false
			}
		}
		if readErr == nil {
			continue
		}
		if c.state.StopRequested() {
			return false
		}
		switch {
		case errors.Is(readErr, audio.ErrSourceUnavailable):
			slog.Error("audio source failed", "error", readErr, "session_id", c.live.ID)
			if !c.state.ShuttingDown() {
				c.printer.Error(fmt.Sprintf(messageSourceUnavailable, readErr))
			}
			return true
		case errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF):
			slog.Info("audio source ended", "session_id", c.live.ID, "bytes", c.audioBytes.Load())
		default:
			slog.Warn("failed to read audio source", "error", readErr, "session_id", c.live.ID)
		}
		if !c.state.ShuttingDown() {
			c.printer.Info(messageSourceEnded)
		}
		return true
	}
}

func (c *Coordinator) send(conn transcriber.Conn, chunk []byte) bool {
	if err := conn.SendAudio(chunk); err != nil {
		if !c.state.ShuttingDown() {
			err = fmt.Errorf("%w: %w", ErrSendFailed, err)
			slog.Error("audio producer stopped", "error", err, "session_id", c.live.ID)
			c.printer.Error(fmt.Sprintf(messageSendFailed, err))
		}
		return false
	}
	c.chunks.Add(1)
	c.audioBytes.Add(int64(len(chunk)))

	if err := c.sink.WriteAudio(chunk); err != nil {
		c.audioWriteFailOnce.Do(func() {
			slog.Error("failed to write audio capture", "error", err, "session_id", c.live.ID)
			if !c.state.ShuttingDown() {
				c.printer.Error(fmt.Sprintf(messagePersistFailed, "audio", err))
			}
		})
	}
	return true
}
