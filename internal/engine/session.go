package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/workout"
)

// Phase is a named state of the execution state machine.
type Phase string

const (
	PhaseGetReady             Phase = "get_ready"
	PhaseExerciseActive       Phase = "exercise_active"
	PhaseRestBetweenSets      Phase = "rest_between_sets"
	PhaseRestBetweenExercises Phase = "rest_between_exercises"
	PhaseCompleted            Phase = "completed"
	PhaseAbandoned            Phase = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAbandoned
}

// Rest reports whether the phase is one of the rest countdowns.
func (p Phase) Rest() bool {
	return p == PhaseRestBetweenSets || p == PhaseRestBetweenExercises
}

// Run is the mutable per-attempt record of one exercise within one
// session. Timer holds the whole-exercise clock; SetTimer restarts on
// every set for the set-based modes so per-set countdowns stay
// timestamp-derived too.
type Run struct {
	ExerciseID uuid.UUID `json:"exercise_id"`
	Timer      timer     `json:"timer"`
	SetTimer   timer     `json:"set_timer"`
	CurrentSet int       `json:"current_set,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
}

// Active reports whether this run is the one in progress.
func (r Run) Active() bool {
	return r.Timer.running()
}

// Touched reports whether the run has ever started.
func (r Run) Touched() bool {
	return r.Timer.StartedAt != nil
}

// Session is the full mutable state of one workout in progress. It is
// owned exclusively by one Controller and serialized whole on every
// mutation; the embedded workout definition makes a snapshot
// self-contained for resume.
type Session struct {
	ID           uuid.UUID       `json:"id"`
	Workout      workout.Workout `json:"workout"`
	StartedAt    time.Time       `json:"started_at"`
	Phase        Phase           `json:"phase"`
	CurrentIndex int             `json:"current_index"`
	Runs         []Run           `json:"runs"`
	// PhaseTimer times the get-ready and rest pseudo-phases with the
	// same pause mechanics as exercise runs.
	PhaseTimer timer `json:"phase_timer"`
	// RestOverrideSec is the user-adjusted rest length; 0 means use
	// the descriptor's own rest values.
	RestOverrideSec int `json:"rest_override_sec,omitempty"`
}

func newSession(w workout.Workout, now time.Time) *Session {
	s := &Session{
		ID:           uuid.New(),
		Workout:      w,
		StartedAt:    now,
		Phase:        PhaseGetReady,
		CurrentIndex: 0,
		Runs:         make([]Run, len(w.Exercises)),
	}
	for i := range s.Runs {
		s.Runs[i].ExerciseID = w.Exercises[i].ID
	}
	s.PhaseTimer.start(now)
	return s
}

func (s *Session) currentExercise() workout.Exercise {
	return s.Workout.Exercises[s.CurrentIndex]
}

func (s *Session) currentRun() *Run {
	return &s.Runs[s.CurrentIndex]
}

// restOverride returns the user override, or 0 if unset.
func (s *Session) restOverride() time.Duration {
	return time.Duration(s.RestOverrideSec) * time.Second
}

// restBetweenSetsTarget is the countdown target while resting between
// sets of the current exercise.
func (s *Session) restBetweenSetsTarget() time.Duration {
	if s.RestOverrideSec > 0 {
		return s.restOverride()
	}
	return s.currentExercise().Completion.SetRest()
}

// restBetweenExercisesTarget is the countdown target while resting
// before runs[CurrentIndex]; the rest belongs to the previous
// exercise's descriptor.
func (s *Session) restBetweenExercisesTarget() time.Duration {
	if s.RestOverrideSec > 0 {
		return s.restOverride()
	}
	if s.CurrentIndex == 0 {
		return 0
	}
	return s.Workout.Exercises[s.CurrentIndex-1].RestAfter()
}

// liveTimer returns the timer the current phase is measured by: the
// active run during exercise_active, the phase timer during get-ready
// and rests, nil in terminal phases.
func (s *Session) liveTimer() *timer {
	switch s.Phase {
	case PhaseExerciseActive:
		return &s.currentRun().Timer
	case PhaseGetReady, PhaseRestBetweenSets, PhaseRestBetweenExercises:
		return &s.PhaseTimer
	}
	return nil
}

// validate re-checks the structural invariants a snapshot must hold
// before the controller will adopt it. Anything false here means the
// blob is corrupt or from a torn write and must be discarded.
func (s *Session) validate() bool {
	if s == nil || s.Phase == "" {
		return false
	}
	if err := s.Workout.Validate(); err != nil {
		return false
	}
	if len(s.Runs) != len(s.Workout.Exercises) {
		return false
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.Runs) {
		return false
	}
	if !s.Phase.Terminal() && s.CurrentIndex == len(s.Runs) {
		return false
	}
	active := 0
	for i := range s.Runs {
		r := &s.Runs[i]
		if !r.Timer.valid() || !r.SetTimer.valid() {
			return false
		}
		if r.Active() {
			active++
			if i != s.CurrentIndex {
				return false
			}
		}
		if i < s.CurrentIndex && r.Timer.FinishedAt == nil {
			return false
		}
		if i > s.CurrentIndex && r.Touched() {
			return false
		}
	}
	if active > 1 {
		return false
	}
	return s.PhaseTimer.valid()
}
