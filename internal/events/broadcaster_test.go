package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type frame struct {
	event string
	data  string
}

type fakeStream struct {
	mu     sync.Mutex
	frames []frame
	failAt int // fail on the Nth Send (1-based), 0 never
	sends  int
	closed bool
	done   chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{done: make(chan struct{})}
}

func (s *fakeStream) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends++
	if s.failAt > 0 && s.sends >= s.failAt {
		return errors.New("broken pipe")
	}
	s.frames = append(s.frames, frame{event, string(data)})
	return nil
}

func (s *fakeStream) Done() <-chan struct{} { return s.done }

func (s *fakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

func (s *fakeStream) snapshot() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestBroadcasterFansOutToAllStreams(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)

	streams := []*fakeStream{newFakeStream(), newFakeStream(), newFakeStream()}
	for _, s := range streams {
		b.Accept(s)
	}
	if b.Count() != 3 {
		t.Fatalf("Count = %d, want 3", b.Count())
	}

	b.Broadcast(EventDataChange, map[string]string{"entity": "lines", "action": "insert"})

	for i, s := range streams {
		frames := s.snapshot()
		if len(frames) != 2 {
			t.Fatalf("stream %d got %d frames, want connected + data_change", i, len(frames))
		}
		if frames[0].event != EventConnected {
			t.Errorf("stream %d first event = %s", i, frames[0].event)
		}
		if frames[1].event != EventDataChange {
			t.Errorf("stream %d second event = %s", i, frames[1].event)
		}
		if frames[1].data != streams[0].snapshot()[1].data {
			t.Errorf("stream %d payload differs", i)
		}
		var decoded map[string]string
		if err := json.Unmarshal([]byte(frames[1].data), &decoded); err != nil {
			t.Errorf("stream %d payload not JSON: %v", i, err)
		}
	}
}

func TestBroadcasterDropsFailingStream(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)

	healthy := newFakeStream()
	broken := newFakeStream()
	broken.failAt = 2 // accepts the connected ack, fails on the broadcast

	b.Accept(healthy)
	b.Accept(broken)

	b.Broadcast(EventDataChange, map[string]string{"entity": "employees"})

	if b.Count() != 1 {
		t.Fatalf("Count = %d, want broken stream dropped", b.Count())
	}
	if !broken.isClosed() {
		t.Error("dropped stream not closed")
	}

	b.Broadcast(EventDataChange, map[string]string{"entity": "processes"})
	if got := len(healthy.snapshot()); got != 3 {
		t.Errorf("healthy stream frames = %d, want 3", got)
	}
}

func TestBroadcasterDropsStreamWhenDone(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)

	s := newFakeStream()
	b.Accept(s)
	s.Close()

	deadline := time.After(time.Second)
	for b.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("closed stream never detached")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBroadcasterShutdown(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)

	streams := []*fakeStream{newFakeStream(), newFakeStream()}
	for _, s := range streams {
		b.Accept(s)
	}

	b.Shutdown()
	b.Shutdown() // idempotent

	if b.Count() != 0 {
		t.Fatalf("Count = %d after Shutdown", b.Count())
	}
	for i, s := range streams {
		if !s.isClosed() {
			t.Errorf("stream %d not closed", i)
		}
	}

	// Accepting after shutdown closes the stream straight away.
	late := newFakeStream()
	b.Accept(late)
	if !late.isClosed() {
		t.Error("late stream accepted after shutdown")
	}
}
