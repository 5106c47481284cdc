// Copyright 2026 The TVB HPC Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(epoch)

	if got := fake.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	fake.Advance(90 * time.Second)
	if got := Since(fake, epoch); got != 90*time.Second {
		t.Errorf("Since = %v, want 90s", got)
	}
}

func TestFakeAutoAdvance(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := Fake(epoch)
	fake.AutoAdvance(time.Second)

	start := fake.Now()
	if got := Since(fake, start); got != time.Second {
		t.Errorf("Since = %v, want 1s", got)
	}
}

func TestRealMovesForward(t *testing.T) {
	real := Real()
	first := real.Now()
	if Since(real, first) < 0 {
		t.Error("real clock went backwards")
	}
}
