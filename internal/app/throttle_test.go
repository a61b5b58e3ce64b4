package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedDelay_SkipsFirstChunk(t *testing.T) {
	var slept []time.Duration
	f := NewFixedDelay(time.Second)
	f.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := f.Wait(context.Background(), i); err != nil {
			t.Fatalf("Wait(%d): %v", i, err)
		}
	}
	if len(slept) != 2 {
		t.Fatalf("expected 2 sleeps for 3 chunks, got %d", len(slept))
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("expected 1s delay, got %v", d)
		}
	}
}

func TestFixedDelay_HonorsContext(t *testing.T) {
	f := NewFixedDelay(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := f.Wait(ctx, 1); err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Wait should return as soon as the context is done")
	}
}

func TestTokenBucket_BurstThenWaits(t *testing.T) {
	tb := NewTokenBucket(100*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()
	if err := tb.Wait(ctx, 0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if err := tb.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) < 80*time.Millisecond {
		t.Fatalf("second token should have been delayed")
	}
}

func TestNewThrottle_SelectsImplementation(t *testing.T) {
	th, err := NewThrottle("", time.Second, 0)
	if err != nil {
		t.Fatalf("NewThrottle(default): %v", err)
	}
	if f, ok := th.(*FixedDelay); !ok || f.Delay != time.Second {
		t.Fatalf("default throttle: want *FixedDelay(1s), got %#v", th)
	}

	th, err = NewThrottle("Token", 200*time.Millisecond, 3)
	if err != nil {
		t.Fatalf("NewThrottle(token): %v", err)
	}
	tb, ok := th.(*TokenBucket)
	if !ok {
		t.Fatalf("token throttle: got %#v", th)
	}
	if tb.limiter.Burst() != 3 {
		t.Fatalf("burst: want 3, got %d", tb.limiter.Burst())
	}

	if _, err := NewThrottle("leaky", time.Second, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
