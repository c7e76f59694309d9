package ratelimit

import (
	"testing"
	"time"
)

func TestAllowBurst(t *testing.T) {
	l := New()
	// capacity 2, effectively no refill within the test
	for i := 0; i < 2; i++ {
		if !l.Allow("k", 2, 0.0001) {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if l.Allow("k", 2, 0.0001) {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestAllowPerKey(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0.0001) {
		t.Fatal("first key should pass")
	}
	if !l.Allow("b", 1, 0.0001) {
		t.Fatal("independent key should pass")
	}
	if l.Allow("a", 1, 0.0001) {
		t.Fatal("exhausted key should be rejected")
	}
}

func TestRefill(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 1000) {
		t.Fatal("first request should pass")
	}
	time.Sleep(5 * time.Millisecond)
	if !l.Allow("k", 1, 1000) {
		t.Fatal("bucket should have refilled")
	}
}
