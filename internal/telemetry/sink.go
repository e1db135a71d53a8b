package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Sink delivers batches to a remote collector. Send reports per-batch
// success or failure; the queue owns retries.
type Sink interface {
	Send(ctx context.Context, batch Batch) error
	Close() error
}

// NopSink discards every batch. Used when telemetry is disabled.
type NopSink struct{}

func (NopSink) Send(ctx context.Context, batch Batch) error { return nil }

func (NopSink) Close() error { return nil }

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// WSSink ships batches as JSON frames over a WebSocket connection. The
// connection is dialed lazily on first send and redialed after any write
// failure.
type WSSink struct {
	url    string
	header http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSink builds a sink for the given ws:// or wss:// endpoint. The API
// key, when set, is sent as a bearer token during the handshake.
func NewWSSink(url, apiKey string) *WSSink {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	return &WSSink{url: url, header: header}
}

func (s *WSSink) Send(ctx context.Context, batch Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, s.url, s.header)
		if err != nil {
			return fmt.Errorf("telemetry: dial %s: %w", s.url, err)
		}
		s.conn = conn
	}

	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteJSON(batch); err != nil {
		// Drop the connection so the next attempt redials.
		s.conn.Close()
		s.conn = nil
		return fmt.Errorf("telemetry: send batch %s: %w", batch.ID, err)
	}
	return nil
}

func (s *WSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if closeErr := s.conn.Close(); err == nil {
		err = closeErr
	}
	s.conn = nil
	return err
}
