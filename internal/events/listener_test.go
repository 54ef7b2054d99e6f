package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type regenCall struct {
	entity string
	id     int64
}

type fakeRegen struct {
	err   error
	calls chan regenCall
}

func newFakeRegen() *fakeRegen {
	return &fakeRegen{calls: make(chan regenCall, 8)}
}

func (f *fakeRegen) Regenerate(ctx context.Context, entity string, id int64) error {
	f.calls <- regenCall{entity, id}
	return f.err
}

func TestHandleNotificationBroadcastsChange(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)
	s := newFakeStream()
	b.Accept(s)

	l := NewListener(nil, b, nil, zap.NewNop())
	l.HandleNotification(context.Background(), `{"entity":"assignments","action":"update","id":7,"line_id":3}`)

	frames := s.snapshot()
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want connected + data_change", len(frames))
	}
	if frames[1].event != EventDataChange {
		t.Errorf("event = %s, want %s", frames[1].event, EventDataChange)
	}
	want := `{"entity":"assignments","action":"update","id":7,"line_id":3}`
	if frames[1].data != want {
		t.Errorf("payload = %s, want %s", frames[1].data, want)
	}
}

func TestHandleNotificationTriggersRegeneration(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)
	regen := newFakeRegen()

	l := NewListener(nil, b, regen, zap.NewNop())
	l.HandleNotification(context.Background(), `{"entity":"employees","action":"insert","id":12}`)

	select {
	case call := <-regen.calls:
		if call.entity != "employees" || call.id != 12 {
			t.Errorf("regen call = %+v", call)
		}
	case <-time.After(time.Second):
		t.Fatal("regeneration never fired")
	}
}

func TestHandleNotificationUpdateDoesNotRegenerate(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)
	regen := newFakeRegen()

	l := NewListener(nil, b, regen, zap.NewNop())
	l.HandleNotification(context.Background(), `{"entity":"employees","action":"update","id":12}`)
	l.HandleNotification(context.Background(), `{"entity":"assignments","action":"insert","id":3}`)

	select {
	case call := <-regen.calls:
		t.Fatalf("unexpected regeneration: %+v", call)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleNotificationBroadcastsDespiteRegenFailure(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)
	s := newFakeStream()
	b.Accept(s)

	regen := newFakeRegen()
	regen.err = errors.New("cache unavailable")

	l := NewListener(nil, b, regen, zap.NewNop())
	l.HandleNotification(context.Background(), `{"entity":"lines","action":"insert","id":4}`)

	<-regen.calls
	if got := len(s.snapshot()); got != 2 {
		t.Fatalf("frames = %d, want broadcast despite regen failure", got)
	}
}

func TestHandleNotificationIgnoresGarbage(t *testing.T) {
	b := NewBroadcaster(time.Minute, nil)
	s := newFakeStream()
	b.Accept(s)

	l := NewListener(nil, b, nil, zap.NewNop())
	l.HandleNotification(context.Background(), "not-json")

	if got := len(s.snapshot()); got != 1 {
		t.Fatalf("frames = %d, want only the connected ack", got)
	}
}
