package clock

import (
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 2, 13, 5, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got, want := c.Now(), start.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", got, want)
	}

	c.Set(start.Add(-time.Minute))
	if got, want := c.Now(), start.Add(-time.Minute); !got.Equal(want) {
		t.Errorf("after Set Now() = %v, want %v", got, want)
	}
}

func TestRealClockMovesForward(t *testing.T) {
	c := Real()
	before := time.Now()
	if got := c.Now(); got.Before(before) {
		t.Errorf("Real().Now() = %v, earlier than %v", got, before)
	}
}
