package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_NowIsUTC(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	if got.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
		t.Errorf("RealClock.Now() = %v, outside [%v, %v]", got, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	clk := NewFakeClock(start)

	if !clk.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", clk.Now(), start)
	}

	got := clk.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !got.Equal(want) || !clk.Now().Equal(want) {
		t.Errorf("Advance() = %v, Now() = %v, want %v", got, clk.Now(), want)
	}

	if d := Since(clk, start); d != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", d)
	}

	other := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	clk.Set(other)
	if !clk.Now().Equal(other) {
		t.Errorf("Set() then Now() = %v, want %v", clk.Now(), other)
	}
}

func TestFakeClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewFakeClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clk.Advance(time.Second)
			_ = clk.Now()
		}()
	}
	wg.Wait()

	if want := start.Add(50 * time.Second); !clk.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", clk.Now(), want)
	}
}
