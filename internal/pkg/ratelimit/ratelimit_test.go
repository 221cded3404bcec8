package ratelimit

import (
	"testing"
	"time"
)

func TestAllowSpendsBudgetThenRejects(t *testing.T) {
	l := NewMemory()

	allowed := 0
	for i := 0; i < 3; i++ {
		if l.Allow("alerts:1.2.3.4", 2, time.Minute) {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected 2 allowed out of 3, got %d", allowed)
	}
}

func TestAllowRefillsAfterWindow(t *testing.T) {
	l := NewMemory()
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !l.Allow("k", 2, time.Minute) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("k", 2, time.Minute) {
		t.Fatal("budget exhausted, expected reject")
	}

	now = now.Add(time.Minute)
	if !l.Allow("k", 2, time.Minute) {
		t.Fatal("expected allow after window elapsed")
	}
}

func TestAllowPartialRefill(t *testing.T) {
	l := NewMemory()
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		l.Allow("k", 2, time.Minute)
	}

	// Half a window refills one token for limit=2.
	now = now.Add(30 * time.Second)
	if !l.Allow("k", 2, time.Minute) {
		t.Fatal("expected one token after half window")
	}
	if l.Allow("k", 2, time.Minute) {
		t.Fatal("expected reject, only one token refilled")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewMemory()
	if !l.Allow("alerts:a", 1, time.Minute) {
		t.Fatal("first key should be allowed")
	}
	if l.Allow("alerts:a", 1, time.Minute) {
		t.Fatal("first key budget spent")
	}
	if !l.Allow("confirm:a", 1, time.Minute) {
		t.Fatal("different operation must have its own budget")
	}
}
