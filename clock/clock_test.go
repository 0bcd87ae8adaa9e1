package clock

import (
	"testing"
	"time"
)

func TestFakeClockAfter(t *testing.T) {
	start := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	fired := <-c.After(500 * time.Millisecond)

	if want := start.Add(500 * time.Millisecond); !fired.Equal(want) {
		t.Errorf("After() fired at %s, expected %s", fired, want)
	}
	if !c.Now().Equal(fired) {
		t.Errorf("Now() = %s, expected %s", c.Now(), fired)
	}
}
