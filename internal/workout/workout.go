package workout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CompletionMode tells the engine how an exercise finishes.
type CompletionMode string

const (
	// ModeCountdown finishes when a fixed duration runs out.
	ModeCountdown CompletionMode = "countdown"
	// ModeStopwatch counts up; the user marks completion manually.
	ModeStopwatch CompletionMode = "stopwatch"
	// ModeRepsXSets is a fixed number of sets of a fixed rep count.
	ModeRepsXSets CompletionMode = "reps_x_sets"
	// ModeTimedSets is a fixed number of sets, each a countdown.
	ModeTimedSets CompletionMode = "timed_sets"
)

// Completion is the tagged variant describing how one exercise
// completes. Which fields are meaningful depends on Mode; use
// RequiredInputs to drive input forms instead of switching on Mode
// at every call site.
type Completion struct {
	Mode        CompletionMode `json:"mode"`
	DurationSec int            `json:"duration_sec,omitempty"`
	Reps        int            `json:"reps,omitempty"`
	Sets        int            `json:"sets,omitempty"`
	SetRestSec  int            `json:"set_rest_sec,omitempty"`
}

// Inputs names the fields a Completion actually uses.
type Inputs struct {
	NeedsDuration bool
	NeedsReps     bool
	NeedsSets     bool
	NeedsSetRest  bool
}

// RequiredInputs derives which target fields the mode consumes.
func (c Completion) RequiredInputs() Inputs {
	switch c.Mode {
	case ModeCountdown:
		return Inputs{NeedsDuration: true}
	case ModeStopwatch:
		return Inputs{}
	case ModeRepsXSets:
		return Inputs{NeedsReps: true, NeedsSets: true, NeedsSetRest: true}
	case ModeTimedSets:
		return Inputs{NeedsDuration: true, NeedsSets: true, NeedsSetRest: true}
	}
	return Inputs{}
}

// SetBased reports whether the mode tracks per-set progress.
func (c Completion) SetBased() bool {
	return c.Mode == ModeRepsXSets || c.Mode == ModeTimedSets
}

// Timed reports whether the mode has a countdown target while active.
func (c Completion) Timed() bool {
	return c.Mode == ModeCountdown || c.Mode == ModeTimedSets
}

// Duration returns the countdown target for timed modes.
func (c Completion) Duration() time.Duration {
	return time.Duration(c.DurationSec) * time.Second
}

// SetRest returns the descriptor-level rest between sets.
func (c Completion) SetRest() time.Duration {
	return time.Duration(c.SetRestSec) * time.Second
}

func (c Completion) validate() error {
	in := c.RequiredInputs()
	if in.NeedsDuration && c.DurationSec <= 0 {
		return fmt.Errorf("mode %s requires duration_sec > 0", c.Mode)
	}
	if in.NeedsReps && c.Reps <= 0 {
		return fmt.Errorf("mode %s requires reps > 0", c.Mode)
	}
	if in.NeedsSets && c.Sets <= 0 {
		return fmt.Errorf("mode %s requires sets > 0", c.Mode)
	}
	switch c.Mode {
	case ModeCountdown, ModeStopwatch, ModeRepsXSets, ModeTimedSets:
		return nil
	}
	return fmt.Errorf("unknown completion mode %q", c.Mode)
}

// Exercise is the immutable descriptor of one drill within a workout.
type Exercise struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Completion   Completion `json:"completion"`
	RestAfterSec int        `json:"rest_after_sec,omitempty"`
}

// RestAfter returns the rest before the next exercise.
func (e Exercise) RestAfter() time.Duration {
	return time.Duration(e.RestAfterSec) * time.Second
}

// Workout is an ordered exercise list. The engine treats it as
// read-only; authoring happens elsewhere.
type Workout struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// Validate checks the definition is executable. An empty exercise
// list is rejected here rather than producing a degenerate
// already-complete session.
func (w Workout) Validate() error {
	if len(w.Exercises) == 0 {
		return fmt.Errorf("workout %q has no exercises", w.Name)
	}
	for i, ex := range w.Exercises {
		if err := ex.Completion.validate(); err != nil {
			return fmt.Errorf("exercise %d (%s): %w", i, ex.Name, err)
		}
		if ex.RestAfterSec < 0 {
			return fmt.Errorf("exercise %d (%s): rest_after_sec must be >= 0", i, ex.Name)
		}
	}
	return nil
}
