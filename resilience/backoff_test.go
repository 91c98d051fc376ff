package resilience

import (
	"testing"
	"time"
)

func TestBackoff_Exponential(t *testing.T) {
	b := Backoff{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoff_Linear(t *testing.T) {
	b := Backoff{
		InitialDelay: 50 * time.Millisecond,
		Strategy:     BackoffLinear,
		MaxDelay:     time.Minute,
	}

	for attempt := 1; attempt <= 4; attempt++ {
		want := time.Duration(attempt) * 50 * time.Millisecond
		if got := b.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoff_Constant(t *testing.T) {
	b := Backoff{
		InitialDelay: 75 * time.Millisecond,
		Strategy:     BackoffConstant,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		if got := b.Delay(attempt); got != 75*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 75ms", attempt, got)
		}
	}
}

func TestBackoff_MaxDelayCap(t *testing.T) {
	b := Backoff{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Second,
	}

	if got := b.Delay(10); got != time.Second {
		t.Errorf("Delay(10) = %v, want cap at 1s", got)
	}
}

func TestBackoff_OverflowClampsToMax(t *testing.T) {
	b := Backoff{
		InitialDelay: time.Second,
		Multiplier:   10,
		MaxDelay:     time.Minute,
	}

	// Large exponents overflow time.Duration; the result must still be
	// the cap, never negative.
	if got := b.Delay(100); got != time.Minute {
		t.Errorf("Delay(100) = %v, want 1m", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	var b Backoff

	if got := b.Delay(1); got != 100*time.Millisecond {
		t.Errorf("zero-value Delay(1) = %v, want 100ms", got)
	}
	if got := b.Delay(2); got != 200*time.Millisecond {
		t.Errorf("zero-value Delay(2) = %v, want 200ms", got)
	}
}

func TestBackoff_JitterBounded(t *testing.T) {
	b := Backoff{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
		Jitter:       true,
	}

	base := 400 * time.Millisecond
	lo := base - base/5
	hi := base + base/5

	for i := 0; i < 100; i++ {
		got := b.Delay(3)
		if got < lo || got > hi {
			t.Fatalf("Delay(3) with jitter = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestBackoff_NeverNegative(t *testing.T) {
	b := Backoff{InitialDelay: time.Nanosecond, Jitter: true}

	for i := 0; i < 100; i++ {
		if got := b.Delay(1); got < 0 {
			t.Fatalf("Delay(1) = %v, want >= 0", got)
		}
	}
}

func TestBackoffStrategy_String(t *testing.T) {
	tests := []struct {
		strategy BackoffStrategy
		want     string
	}{
		{BackoffExponential, "exponential"},
		{BackoffLinear, "linear"},
		{BackoffConstant, "constant"},
		{BackoffStrategy(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.strategy.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
