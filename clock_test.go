package aio

import (
	"testing"
	"time"
)

func TestNowMonotonic(t *testing.T) {

	prev := Now()
	for i := 0; i < 10000; i++ {
		now := Now()
		if now < prev {
			t.Fatalf("clock went backward: %d -> %d", prev, now)
		}
		prev = now
	}
}

func TestNowAdvances(t *testing.T) {

	start := Now()
	time.Sleep(10 * time.Millisecond)
	elapsed := Now() - start

	if elapsed < int64(5*time.Millisecond) {
		t.Fatalf("clock barely advanced across a sleep: %d", elapsed)
	}
}
