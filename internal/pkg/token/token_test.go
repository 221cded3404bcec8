package token

import (
	"testing"
	"time"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	tok, err := Generate(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(tok) != 32 {
		t.Fatalf("expected 32 hex chars for 16 bytes, got %d", len(tok))
	}
	for _, r := range tok {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("unexpected character %q in token %q", r, tok)
		}
	}
}

func TestGenerateDefaultLength(t *testing.T) {
	tok, err := Generate(0)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(tok) != 2*DefaultByteLength {
		t.Fatalf("expected %d chars, got %d", 2*DefaultByteLength, len(tok))
	}
}

func TestGenerateNoDuplicates(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		tok, err := Generate(16)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestExpiresInIsUTCFuture(t *testing.T) {
	exp := ExpiresIn(24)
	if exp.Location() != time.UTC {
		t.Fatalf("expected UTC, got %v", exp.Location())
	}
	d := time.Until(exp)
	if d < 23*time.Hour || d > 25*time.Hour {
		t.Fatalf("expected ~24h from now, got %v", d)
	}
}
