package engine

import (
	"time"

	"github.com/google/uuid"
)

// Summary is what Finish hands the history collaborator. The engine
// computes nothing beyond these fields; streaks and trends belong to
// whoever stores this.
type Summary struct {
	SessionID   uuid.UUID        `json:"session_id"`
	WorkoutID   uuid.UUID        `json:"workout_id"`
	WorkoutName string           `json:"workout_name"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     time.Time        `json:"ended_at"`
	Exercises   []ExerciseResult `json:"exercises"`
}

// ExerciseResult is one exercise's outcome within a summary.
type ExerciseResult struct {
	ExerciseID     uuid.UUID     `json:"exercise_id"`
	Name           string        `json:"name"`
	Completed      bool          `json:"completed"`
	Skipped        bool          `json:"skipped"`
	ActualSets     int           `json:"actual_sets,omitempty"`
	ActualDuration time.Duration `json:"actual_duration"`
}

// Duration is the whole-session wall time.
func (s Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// CompletedCount returns how many exercises were finished unskipped.
// All-skipped sessions are legitimate completions that simply report
// zero here.
func (s Summary) CompletedCount() int {
	n := 0
	for _, e := range s.Exercises {
		if e.Completed {
			n++
		}
	}
	return n
}

// SkippedCount returns how many exercises were skipped.
func (s Summary) SkippedCount() int {
	n := 0
	for _, e := range s.Exercises {
		if e.Skipped {
			n++
		}
	}
	return n
}

func (c *Controller) summarize(s *Session, now time.Time) Summary {
	sum := Summary{
		SessionID:   s.ID,
		WorkoutID:   s.Workout.ID,
		WorkoutName: s.Workout.Name,
		StartedAt:   s.StartedAt,
		EndedAt:     now,
		Exercises:   make([]ExerciseResult, len(s.Runs)),
	}
	for i, r := range s.Runs {
		res := ExerciseResult{
			ExerciseID:     r.ExerciseID,
			Name:           s.Workout.Exercises[i].Name,
			Completed:      r.Timer.FinishedAt != nil && !r.Skipped,
			Skipped:        r.Skipped,
			ActualDuration: r.Timer.elapsed(now),
		}
		if s.Workout.Exercises[i].Completion.SetBased() && !r.Skipped {
			res.ActualSets = r.CurrentSet
		}
		sum.Exercises[i] = res
	}
	return sum
}
