package jitter

import (
	"sync"
	"testing"
	"time"
)

func TestDuration_ZeroVariationReturnsBase(t *testing.T) {
	base := 10 * time.Minute
	if got := Duration(base, 0); got != base {
		t.Errorf("expected %v, got %v", base, got)
	}
}

func TestDuration_WithinBounds(t *testing.T) {
	Seed(1)
	base := 10 * time.Minute
	variation := 5 * time.Minute
	for i := 0; i < 1000; i++ {
		got := Duration(base, variation)
		if got < base-variation || got > base+variation {
			t.Fatalf("Duration out of bounds: %v (base %v, variation %v)", got, base, variation)
		}
	}
}

func TestDuration_ConcurrentSafe(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Duration(time.Minute, 30*time.Second)
			}
		}()
	}
	wg.Wait()
}
