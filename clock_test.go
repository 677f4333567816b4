package mongopersistence

import (
	"testing"
	"time"
)

func TestSystemClock_ReturnsUTC(t *testing.T) {
	now := SystemClock{}.Now()
	if now.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", now.Location())
	}
}

func TestClockFunc(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return fixed })
	if got := clock.Now(); !got.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, got)
	}
}
