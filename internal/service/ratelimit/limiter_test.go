package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowConsumesBurst(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("rpc", 3, 1) {
			t.Fatalf("call %d should be within burst", i+1)
		}
	}
	if l.Allow("rpc", 3, 1) {
		t.Fatal("burst exhausted, expected denial")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 1) {
		t.Fatal("first call on key a should pass")
	}
	if l.Allow("a", 1, 1) {
		t.Fatal("key a should be exhausted")
	}
	if !l.Allow("b", 1, 1) {
		t.Fatal("key b has its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("rpc", 1, 100) {
		t.Fatal("first call should pass")
	}
	if l.Allow("rpc", 1, 100) {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("rpc", 1, 100) {
		t.Fatal("bucket should have refilled")
	}
}

func TestWaitStopsOnCancel(t *testing.T) {
	l := New()
	l.Allow("rpc", 1, 0.001)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "rpc", 1, 0.001); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
