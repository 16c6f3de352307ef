package engine

import (
	"testing"
	"time"
)

// TestTimerElapsed covers the base elapsed derivation with and
// without a finish timestamp.
func TestTimerElapsed(t *testing.T) {
	var tm timer
	if got := tm.elapsed(at(10)); got != 0 {
		t.Errorf("unstarted elapsed = %v, want 0", got)
	}

	tm.start(t0)
	if got := tm.elapsed(at(42)); got != 42*time.Second {
		t.Errorf("elapsed = %v, want 42s", got)
	}

	tm.finish(at(50))
	if got := tm.elapsed(at(500)); got != 50*time.Second {
		t.Errorf("finished elapsed = %v, want frozen 50s", got)
	}
}

// TestTimerPauseAccounting verifies pause spans are subtracted and an
// open pause freezes the reading.
func TestTimerPauseAccounting(t *testing.T) {
	var tm timer
	tm.start(t0)
	tm.pause(at(5))
	if got := tm.elapsed(at(100)); got != 5*time.Second {
		t.Errorf("elapsed during open pause = %v, want 5s", got)
	}
	tm.resume(at(100))
	if got := tm.elapsed(at(107)); got != 12*time.Second {
		t.Errorf("elapsed after resume = %v, want 12s", got)
	}
}

// TestTimerFinishWhilePaused verifies finishing a paused timer stops
// the clock at the pause instant.
func TestTimerFinishWhilePaused(t *testing.T) {
	var tm timer
	tm.start(t0)
	tm.pause(at(8))
	tm.finish(at(60))
	if got := tm.elapsed(at(999)); got != 8*time.Second {
		t.Errorf("elapsed = %v, want 8s", got)
	}
	if tm.PauseStart != nil {
		t.Error("finish should close the open pause")
	}
}

// TestTimerRemainingFloor verifies remaining never goes negative.
func TestTimerRemainingFloor(t *testing.T) {
	var tm timer
	tm.start(t0)
	if got := tm.remaining(30*time.Second, at(10)); got != 20*time.Second {
		t.Errorf("remaining = %v, want 20s", got)
	}
	if got := tm.remaining(30*time.Second, at(1000)); got != 0 {
		t.Errorf("overdue remaining = %v, want 0", got)
	}
}

// TestTimerGuards verifies the no-op guards: pausing before start,
// double finish, resuming without a pause.
func TestTimerGuards(t *testing.T) {
	var tm timer
	tm.pause(t0)
	if tm.PauseStart != nil {
		t.Error("pause before start should be ignored")
	}
	tm.resume(t0)

	tm.start(t0)
	tm.finish(at(10))
	first := *tm.FinishedAt
	tm.finish(at(20))
	if !tm.FinishedAt.Equal(first) {
		t.Error("second finish should not move the finish timestamp")
	}
	tm.pause(at(30))
	if tm.PauseStart != nil {
		t.Error("pause after finish should be ignored")
	}
}

// TestTimerValid exercises the consistency checks used during
// snapshot reconciliation.
func TestTimerValid(t *testing.T) {
	cases := []struct {
		name string
		tm   timer
		want bool
	}{
		{"zero", timer{}, true},
		{"finished before started", timer{StartedAt: ptr(at(10)), FinishedAt: ptr(t0)}, false},
		{"finished without start", timer{FinishedAt: ptr(t0)}, false},
		{"paused without start", timer{PauseStart: ptr(t0)}, false},
		{"finished with open pause", timer{StartedAt: ptr(t0), FinishedAt: ptr(at(5)), PauseStart: ptr(at(2))}, false},
		{"negative paused total", timer{StartedAt: ptr(t0), PausedTotal: -time.Second}, false},
		{"running", timer{StartedAt: ptr(t0)}, true},
	}
	for _, tc := range cases {
		if got := tc.tm.valid(); got != tc.want {
			t.Errorf("%s: valid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }
