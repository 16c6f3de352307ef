package engine

import "time"

// timer is the shared elapsed-time mechanic for exercise runs and for
// the timed pseudo-phases (get-ready, rests). Elapsed time is always
// derived from timestamps at query time, never accumulated by a
// ticking counter, so arbitrary process suspensions are absorbed the
// moment anyone asks.
type timer struct {
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	PausedTotal time.Duration `json:"paused_total,omitempty"`
	PauseStart  *time.Time    `json:"pause_start,omitempty"`
}

func (t *timer) start(now time.Time) {
	ts := now
	t.StartedAt = &ts
	t.FinishedAt = nil
	t.PausedTotal = 0
	t.PauseStart = nil
}

func (t *timer) finish(now time.Time) {
	if t.StartedAt == nil || t.FinishedAt != nil {
		return
	}
	// A run finished while paused absorbs the open pause first so the
	// recorded elapsed time stops at the pause instant.
	t.resume(now)
	ts := now
	t.FinishedAt = &ts
}

func (t *timer) pause(now time.Time) {
	if t.StartedAt == nil || t.FinishedAt != nil || t.PauseStart != nil {
		return
	}
	ts := now
	t.PauseStart = &ts
}

func (t *timer) resume(now time.Time) {
	if t.PauseStart == nil {
		return
	}
	t.PausedTotal += now.Sub(*t.PauseStart)
	t.PauseStart = nil
}

func (t timer) running() bool {
	return t.StartedAt != nil && t.FinishedAt == nil
}

func (t timer) paused() bool {
	return t.PauseStart != nil
}

// elapsed returns wall time spent unpaused since start. Pure with
// respect to now: it never mutates the timer.
func (t timer) elapsed(now time.Time) time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	end := now
	if t.FinishedAt != nil {
		end = *t.FinishedAt
	}
	e := end.Sub(*t.StartedAt) - t.PausedTotal
	if t.PauseStart != nil && t.FinishedAt == nil {
		e -= end.Sub(*t.PauseStart)
	}
	if e < 0 {
		return 0
	}
	return e
}

// remaining returns the countdown value against a target, floored at
// zero so queries after a long suspension never go negative.
func (t timer) remaining(target time.Duration, now time.Time) time.Duration {
	r := target - t.elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}

// valid checks internal consistency for snapshot reconciliation.
func (t timer) valid() bool {
	if t.FinishedAt != nil {
		if t.StartedAt == nil || t.FinishedAt.Before(*t.StartedAt) {
			return false
		}
		if t.PauseStart != nil {
			return false
		}
	}
	if t.PauseStart != nil && t.StartedAt == nil {
		return false
	}
	return t.PausedTotal >= 0
}
