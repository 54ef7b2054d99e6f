// internal/events/broadcaster.go
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shopfloor-service/internal/obs"

	"go.uber.org/zap"
)

const (
	EventConnected  = "connected"
	EventDataChange = "data_change"
	EventHeartbeat  = "heartbeat"

	DefaultHeartbeatInterval = 25 * time.Second
)

// Broadcaster fans committed-change notifications out to every connected
// stream. One instance serves the whole process.
type Broadcaster struct {
	mu      sync.Mutex
	streams map[Stream]struct{}
	closed  bool

	heartbeat time.Duration
	logger    *zap.Logger
}

func NewBroadcaster(heartbeat time.Duration, logger *zap.Logger) *Broadcaster {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &Broadcaster{
		streams:   make(map[Stream]struct{}),
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Accept registers a stream, acknowledges the connection, and detaches the
// stream once its underlying connection closes.
func (b *Broadcaster) Accept(s Stream) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.Close()
		return
	}
	b.streams[s] = struct{}{}
	total := len(b.streams)
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Info("stream connected", zap.Int("total", total))
	}

	ack, _ := json.Marshal(map[string]string{"status": "connected"})
	if err := s.Send(EventConnected, ack); err != nil {
		b.drop(s)
		return
	}

	go func() {
		<-s.Done()
		b.drop(s)
	}()
}

// Broadcast serializes the payload once and writes it to every registered
// stream. A failing stream is dropped without affecting the rest.
func (b *Broadcaster) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("failed to marshal broadcast payload", zap.Error(err))
		}
		return
	}
	obs.BroadcastsTotal.WithLabelValues(event).Inc()
	b.send(event, data)
}

func (b *Broadcaster) send(event string, data []byte) {
	b.mu.Lock()
	targets := make([]Stream, 0, len(b.streams))
	for s := range b.streams {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		if err := s.Send(event, data); err != nil {
			b.drop(s)
		}
	}
}

// Run emits heartbeat frames on a fixed interval so idle connections and
// intermediary proxies do not time out. Returns when ctx ends.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.Shutdown()
			return
		case <-ticker.C:
			b.send(EventHeartbeat, nil)
		}
	}
}

// Count returns the number of connected streams.
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

// Shutdown closes every open stream. Idempotent.
func (b *Broadcaster) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	streams := make([]Stream, 0, len(b.streams))
	for s := range b.streams {
		streams = append(streams, s)
	}
	b.streams = make(map[Stream]struct{})
	b.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
}

func (b *Broadcaster) drop(s Stream) {
	b.mu.Lock()
	_, ok := b.streams[s]
	if ok {
		delete(b.streams, s)
	}
	total := len(b.streams)
	b.mu.Unlock()

	if ok {
		s.Close()
		if b.logger != nil {
			b.logger.Info("stream disconnected", zap.Int("total", total))
		}
	}
}
