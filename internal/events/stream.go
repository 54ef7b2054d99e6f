// internal/events/stream.go
package events

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Stream is one long-lived client connection attached to the broadcaster.
// Implementations frame events for their transport.
type Stream interface {
	// Send writes one named event with a pre-serialized JSON payload.
	Send(event string, data []byte) error
	// Done is closed when the underlying connection is gone.
	Done() <-chan struct{}
	// Close tears the connection down. Safe to call more than once.
	Close()
}

// ---- SSE ----

// SSEStream frames events as Server-Sent Events on a flushable writer.
type SSEStream struct {
	mu        sync.Mutex
	w         http.ResponseWriter
	flusher   http.Flusher
	done      chan struct{}
	closeOnce sync.Once
}

// NewSSEStream wraps a response writer. The caller must have set the
// text/event-stream headers already.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}
	return &SSEStream{w: w, flusher: flusher, done: make(chan struct{})}, nil
}

func (s *SSEStream) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("stream closed")
	default:
	}

	if event == EventHeartbeat {
		// comment frame: keeps proxies alive without waking client handlers
		if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
			return err
		}
		s.flusher.Flush()
		return nil
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *SSEStream) Done() <-chan struct{} { return s.done }

func (s *SSEStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// ---- WebSocket ----

// WSStream adapts a gorilla websocket connection to the Stream interface.
type WSStream struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSStream(conn *websocket.Conn) *WSStream {
	s := &WSStream{conn: conn, done: make(chan struct{})}

	// Drain reads so close frames from the client are noticed.
	go func() {
		defer s.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return s
}

func (s *WSStream) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("stream closed")
	default:
	}

	if event == EventHeartbeat {
		return s.conn.WriteMessage(websocket.PingMessage, nil)
	}

	frame := append([]byte(`{"event":"`+event+`","data":`), data...)
	frame = append(frame, '}')
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *WSStream) Done() <-chan struct{} { return s.done }

func (s *WSStream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
