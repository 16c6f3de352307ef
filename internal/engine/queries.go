package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/workout"
)

// State is the narrow read-only view the Presentation Layer renders
// from. It carries the phase and the derived values only; callers
// never branch on session internals outside this surface.
type State struct {
	SessionID       uuid.UUID        `json:"session_id"`
	WorkoutID       uuid.UUID        `json:"workout_id"`
	WorkoutName     string           `json:"workout_name"`
	Phase           Phase            `json:"phase"`
	CurrentIndex    int              `json:"current_index"`
	Exercise        workout.Exercise `json:"exercise"`
	CurrentSet      int              `json:"current_set,omitempty"`
	TotalSets       int              `json:"total_sets,omitempty"`
	ElapsedSec      float64          `json:"elapsed_sec"`
	RemainingSec    *float64         `json:"remaining_sec,omitempty"`
	Paused          bool             `json:"paused"`
	ReadyToComplete bool             `json:"ready_to_complete"`
	RestOverrideSec int              `json:"rest_override_sec,omitempty"`
}

// Phase returns the current phase, or "" when no session exists.
func (c *Controller) Phase() Phase {
	if c.session == nil {
		return ""
	}
	return c.session.Phase
}

// CurrentIndex returns the position in the exercise list.
func (c *Controller) CurrentIndex() int {
	if c.session == nil {
		return 0
	}
	return c.session.CurrentIndex
}

// Elapsed returns unpaused time spent in the live timer at now: the
// current set for set-based exercises, the whole run otherwise, the
// phase countdown while getting ready or resting. Pure: two calls
// with different nows may differ, but neither mutates anything.
func (c *Controller) Elapsed(now time.Time) time.Duration {
	s := c.session
	if s == nil {
		return 0
	}
	switch s.Phase {
	case PhaseExerciseActive:
		r := s.currentRun()
		if s.currentExercise().Completion.SetBased() {
			return r.SetTimer.elapsed(now)
		}
		return r.Timer.elapsed(now)
	case PhaseGetReady, PhaseRestBetweenSets, PhaseRestBetweenExercises:
		return s.PhaseTimer.elapsed(now)
	}
	return 0
}

// Remaining returns the countdown value for the current phase and
// whether one applies. Stopwatch and reps-based exercise phases have
// no target; everything else counts down, floored at zero.
func (c *Controller) Remaining(now time.Time) (time.Duration, bool) {
	s := c.session
	if s == nil {
		return 0, false
	}
	switch s.Phase {
	case PhaseGetReady, PhaseRestBetweenSets, PhaseRestBetweenExercises:
		return s.PhaseTimer.remaining(c.phaseTarget(s), now), true
	case PhaseExerciseActive:
		ex := s.currentExercise()
		switch ex.Completion.Mode {
		case workout.ModeCountdown:
			return s.currentRun().Timer.remaining(ex.Completion.Duration(), now), true
		case workout.ModeTimedSets:
			return s.currentRun().SetTimer.remaining(ex.Completion.Duration(), now), true
		}
	}
	return 0, false
}

// ReadyToComplete signals completion-eligibility: the live countdown
// has hit zero. The engine never acts on this itself: the
// Presentation Layer decides when to call the completing mutator, so
// no transition ever fires from a background clock, including on
// resume after a suspension that outlived the countdown.
func (c *Controller) ReadyToComplete(now time.Time) bool {
	r, ok := c.Remaining(now)
	return ok && r == 0
}

// Paused reports whether the live timer has an open pause.
func (c *Controller) Paused() bool {
	if c.session == nil {
		return false
	}
	live := c.session.liveTimer()
	return live != nil && live.paused()
}

// State assembles the full read-only view at now.
func (c *Controller) State(now time.Time) (State, error) {
	s := c.session
	if s == nil {
		return State{}, ErrNoSession
	}
	st := State{
		SessionID:       s.ID,
		WorkoutID:       s.Workout.ID,
		WorkoutName:     s.Workout.Name,
		Phase:           s.Phase,
		CurrentIndex:    s.CurrentIndex,
		ElapsedSec:      c.Elapsed(now).Seconds(),
		Paused:          c.Paused(),
		ReadyToComplete: c.ReadyToComplete(now),
		RestOverrideSec: s.RestOverrideSec,
	}
	if s.CurrentIndex < len(s.Runs) {
		ex := s.currentExercise()
		st.Exercise = ex
		if ex.Completion.SetBased() {
			st.CurrentSet = s.currentRun().CurrentSet
			st.TotalSets = ex.Completion.Sets
		}
	}
	if rem, ok := c.Remaining(now); ok {
		sec := rem.Seconds()
		st.RemainingSec = &sec
	}
	return st, nil
}

// phaseTarget is the countdown length of the current pseudo-phase.
func (c *Controller) phaseTarget(s *Session) time.Duration {
	switch s.Phase {
	case PhaseGetReady:
		return c.getReady
	case PhaseRestBetweenSets:
		return s.restBetweenSetsTarget()
	case PhaseRestBetweenExercises:
		return s.restBetweenExercisesTarget()
	}
	return 0
}
