package engine

import "errors"

var (
	// ErrInvalidWorkout is returned by Start when the workout
	// definition cannot be executed (empty exercise list, bad mode
	// targets).
	ErrInvalidWorkout = errors.New("invalid workout")

	// ErrInvalidTransition is returned when a mutator is called in a
	// phase where it is not defined. Callers treat it as a no-op.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNoSession is returned by mutators and queries when no
	// workout is in progress.
	ErrNoSession = errors.New("no active session")
)
