package qrtoken

import (
	"errors"
	"strings"
	"testing"

	xerrors "shopfloor-service/internal/pkg/errors"
)

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec([]byte("test-secret"), "shopfloor")

	tests := []struct {
		kind Kind
		id   int64
	}{
		{KindEmployee, 42},
		{KindLine, 1},
		{KindProcess, 9007},
		{KindOperation, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			raw, err := c.Mint(tt.kind, tt.id)
			if err != nil {
				t.Fatalf("Mint: %v", err)
			}
			p, err := c.Verify(raw)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if p.Kind != tt.kind || p.ID != tt.id {
				t.Errorf("got %+v, want {%s %d}", p, tt.kind, tt.id)
			}
		})
	}
}

func TestCodecRejectsTamperedPayload(t *testing.T) {
	c := NewCodec([]byte("test-secret"), "shopfloor")
	raw, err := c.Mint(KindEmployee, 42)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	tampered := raw[:len(raw)-4] + "AAAA"
	if _, err := c.Verify(tampered); !errors.Is(err, xerrors.ErrInvalidQRCode) {
		t.Fatalf("err = %v, want ErrInvalidQRCode", err)
	}
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	minter := NewCodec([]byte("secret-a"), "shopfloor")
	verifier := NewCodec([]byte("secret-b"), "shopfloor")

	raw, _ := minter.Mint(KindEmployee, 1)
	if _, err := verifier.Verify(raw); !errors.Is(err, xerrors.ErrInvalidQRCode) {
		t.Fatalf("err = %v, want ErrInvalidQRCode", err)
	}
}

func TestCodecRejectsWrongIssuer(t *testing.T) {
	minter := NewCodec([]byte("test-secret"), "other-plant")
	verifier := NewCodec([]byte("test-secret"), "shopfloor")

	raw, _ := minter.Mint(KindLine, 1)
	if _, err := verifier.Verify(raw); !errors.Is(err, xerrors.ErrInvalidQRCode) {
		t.Fatalf("err = %v, want ErrInvalidQRCode", err)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	c := NewCodec([]byte("test-secret"), "shopfloor")
	for _, raw := range []string{"", "not-a-token", strings.Repeat("a", 300)} {
		if _, err := c.Verify(raw); !errors.Is(err, xerrors.ErrInvalidQRCode) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalidQRCode", raw, err)
		}
	}
}
