package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/livescribe/internal/transcriber"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout    = 15 * time.Second
	defaultWriteTimeout = 10 * time.Second
	closeFrameTimeout   = time.Second
)

type WebsocketDialer struct {
	dialer       websocket.Dialer
	writeTimeout time.Duration
}

func NewWebsocketDialer() transcriber.Dialer {
	return newWebsocketDialer(defaultWriteTimeout)
}

func newWebsocketDialer(writeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		writeTimeout: writeTimeout,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, endpoint, credential string) (transcriber.Conn, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+credential)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial transcription endpoint: http status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial transcription endpoint: %w", err)
	}
	return &wsConn{conn: conn, writeTimeout: d.writeTimeout}, nil
}

// wsConn serialises writers because gorilla/websocket supports one concurrent
// writer and one concurrent reader. Every write carries a deadline so a peer
// that stops reading cannot hold writeMu forever.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) SendAudio(chunk []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return transcriber.ErrConnectionClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set audio write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("send audio frame: %w", err)
	}
	return nil
}

func (c *wsConn) SendEndRecording(sessionID string, recordingDurationSec float64) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return transcriber.ErrConnectionClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set control write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(transcriber.NewEndRecording(sessionID, recordingDurationSec)); err != nil {
		return fmt.Errorf("send end_recording: %w", err)
	}
	return nil
}

func (c *wsConn) Receive() ([]byte, error) {
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", transcriber.ErrConnectionClosed, err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return payload, nil
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(closeFrameTimeout),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
