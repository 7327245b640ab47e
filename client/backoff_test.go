package client

import (
	"testing"
	"time"
)

func TestBackoffSchedule(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 60*time.Second)

	if first := b.next(); first != 500*time.Millisecond {
		t.Fatalf("first delay: got %v, want 500ms", first)
	}

	prev := time.Duration(0)
	for i := 0; i < 150; i++ {
		d := b.next()
		if d < prev {
			t.Fatalf("delay decreased: %v after %v", d, prev)
		}
		if d > 60*time.Second {
			t.Fatalf("delay exceeded max: %v", d)
		}
		prev = d
	}
	if prev != 60*time.Second {
		t.Errorf("schedule did not saturate at max: %v", prev)
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 60*time.Second)
	for i := 0; i < 40; i++ {
		b.next()
	}
	b.reset()
	if d := b.next(); d != 500*time.Millisecond {
		t.Errorf("delay after reset: got %v, want 500ms", d)
	}
}

func TestBackoffLinearStep(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 60*time.Second)
	b.next() // fails 0
	second := b.next()
	want := 500*time.Millisecond + (60*time.Second-500*time.Millisecond)/100
	if second != want {
		t.Errorf("second delay: got %v, want %v", second, want)
	}
}
