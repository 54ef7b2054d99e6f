package qr

import (
	"context"
	"testing"

	"shopfloor-service/internal/pkg/qrtoken"

	"go.uber.org/zap"
)

func newTestService() *Service {
	codec := qrtoken.NewCodec([]byte("test-secret"), "shopfloor")
	return NewService(codec, nil, zap.NewNop())
}

func TestRegenerateWithoutCache(t *testing.T) {
	s := newTestService()
	if err := s.Regenerate(context.Background(), "employees", 7); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
}

func TestRegenerateUnknownEntity(t *testing.T) {
	s := newTestService()
	if err := s.Regenerate(context.Background(), "assignments", 7); err == nil {
		t.Fatal("assignments have no QR artifact")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	s := newTestService()

	raw, err := s.Payload(context.Background(), qrtoken.KindProcess, 12)
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}

	p, err := s.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Kind != qrtoken.KindProcess || p.ID != 12 {
		t.Errorf("Verify = %+v", p)
	}
}
