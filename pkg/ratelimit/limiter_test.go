package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewLimiter(t *testing.T) {
	tests := []struct {
		name              string
		config            Config
		expectedUnlimited bool
	}{
		{
			name:              "default is unlimited",
			config:            DefaultConfig(),
			expectedUnlimited: true,
		},
		{
			name:              "negative rate is unlimited",
			config:            Config{RequestsPerSecond: -1},
			expectedUnlimited: true,
		},
		{
			name:              "positive rate limits",
			config:            Config{RequestsPerSecond: 5, Burst: 2},
			expectedUnlimited: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLimiter("test", tt.config, zerolog.Nop())
			if l.Unlimited() != tt.expectedUnlimited {
				t.Errorf("Unlimited() = %v, want %v", l.Unlimited(), tt.expectedUnlimited)
			}
		})
	}
}

func TestLimiter_WaitUnlimited(t *testing.T) {
	l := NewLimiter("test", DefaultConfig(), zerolog.Nop())

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Unlimited limiter should not delay requests")
	}
}

func TestLimiter_WaitNil(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait returned error: %v", err)
	}
}

func TestLimiter_WaitThrottles(t *testing.T) {
	l := NewLimiter("test", Config{RequestsPerSecond: 20, Burst: 1}, zerolog.Nop())

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}

	// Burst of 1 at 20/s: the 2nd and 3rd requests wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("Expected throttling, three requests took %v", elapsed)
	}
}

func TestLimiter_WaitContextCancelled(t *testing.T) {
	l := NewLimiter("test", Config{RequestsPerSecond: 0.1, Burst: 1}, zerolog.Nop())

	// Consume the only token.
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}
