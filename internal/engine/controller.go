package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/repflow/internal/snapshot"
	"github.com/meltforce/repflow/internal/workout"
)

// DefaultGetReady is the countdown before the first exercise begins.
const DefaultGetReady = 10 * time.Second

// MinRest is the floor adjustRest clamps to; there is no ceiling.
const MinRest = 15 * time.Second

// Listener receives lifecycle notifications (cue playback, analytics).
// It is an injected collaborator; the engine never reaches into a
// process-wide singleton.
type Listener interface {
	OnExerciseStarted(ex workout.Exercise, index int)
	OnExerciseCompleted(ex workout.Exercise, index int, skipped bool)
	OnWorkoutCompleted(summary Summary)
}

// Recorder receives the finished-workout summary. Streak and stat
// computation live behind this interface, not in the engine.
type Recorder interface {
	Record(ctx context.Context, s Summary) error
}

// Controller drives one workout session through its phases. It is
// single-threaded by contract: all calls must come from one logical
// thread of control, so it holds no locks. None of its operations
// block; the only I/O is the best-effort snapshot write.
type Controller struct {
	session  *Session
	store    snapshot.Store
	log      *slog.Logger
	listener Listener
	recorder Recorder
	getReady time.Duration

	// lastSaveErr is the persistence-failure side channel. A failed
	// snapshot write never rolls back a transition; in-memory state
	// stays authoritative and the next mutation rewrites everything.
	lastSaveErr error
}

// New creates a Controller persisting to store.
func New(store snapshot.Store, log *slog.Logger) *Controller {
	return &Controller{store: store, log: log, getReady: DefaultGetReady}
}

// SetListener installs the lifecycle collaborator.
func (c *Controller) SetListener(l Listener) { c.listener = l }

// SetRecorder installs the history collaborator.
func (c *Controller) SetRecorder(r Recorder) { c.recorder = r }

// SetGetReadyDuration overrides the pre-workout countdown.
func (c *Controller) SetGetReadyDuration(d time.Duration) {
	if d > 0 {
		c.getReady = d
	}
}

// LastSaveErr returns the most recent snapshot write failure, or nil.
// Cleared by the next successful write.
func (c *Controller) LastSaveErr() error { return c.lastSaveErr }

// Start begins a new session in the get_ready phase. Any prior
// snapshot is unconditionally overwritten; the engine tracks exactly
// one session at a time.
func (c *Controller) Start(ctx context.Context, w workout.Workout, now time.Time) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWorkout, err)
	}
	c.session = newSession(w, now)
	c.save(ctx)
	return nil
}

// Load restores a session from the snapshot store on cold start.
// Returns true if a valid session was adopted. A missing, corrupt, or
// invariant-violating snapshot degrades to "no session", never an
// error past this boundary. Derived times need no repair: they are
// recomputed from timestamps at the next query, which silently
// absorbs however long the process was gone.
func (c *Controller) Load(ctx context.Context) (bool, error) {
	blob, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading snapshot: %w", err)
	}
	if blob == nil {
		return false, nil
	}
	var s Session
	if err := json.Unmarshal(blob, &s); err != nil {
		c.log.Warn("discarding corrupt snapshot", "error", err)
		c.clear(ctx)
		return false, nil
	}
	if !s.validate() || s.Phase == PhaseAbandoned {
		c.log.Warn("discarding invalid snapshot", "session_id", s.ID, "phase", s.Phase)
		c.clear(ctx)
		return false, nil
	}
	c.session = &s
	c.log.Info("session restored", "session_id", s.ID, "phase", s.Phase, "exercise", s.CurrentIndex)
	return true, nil
}

// Active reports whether a non-terminal session is in progress.
func (c *Controller) Active() bool {
	return c.session != nil && !c.session.Phase.Terminal()
}

// Pause freezes whichever timer the current phase runs on. No-op if
// already paused.
func (c *Controller) Pause(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	if live := s.liveTimer(); live == nil || live.paused() {
		return nil
	}
	s.PhaseTimer.pause(now)
	if s.CurrentIndex < len(s.Runs) {
		r := s.currentRun()
		r.Timer.pause(now)
		r.SetTimer.pause(now)
	}
	c.save(ctx)
	return nil
}

// Resume closes the open pause, crediting its length to the paused
// timers so elapsed time is exactly where Pause left it. No-op when
// not paused.
func (c *Controller) Resume(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	if live := s.liveTimer(); live == nil || !live.paused() {
		return nil
	}
	s.PhaseTimer.resume(now)
	if s.CurrentIndex < len(s.Runs) {
		r := s.currentRun()
		r.Timer.resume(now)
		r.SetTimer.resume(now)
	}
	c.save(ctx)
	return nil
}

// Advance leaves a timed pseudo-phase: get_ready or a rest phase into
// exercise_active. Called before the countdown expires it is the
// "skip rest" shortcut; a rest target of zero still passes through
// the rest phase and leaves it here.
func (c *Controller) Advance(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	c.closePauses(s, now)
	switch s.Phase {
	case PhaseGetReady, PhaseRestBetweenExercises:
		s.PhaseTimer.finish(now)
		r := s.currentRun()
		r.Timer.start(now)
		ex := s.currentExercise()
		if ex.Completion.SetBased() {
			r.CurrentSet = 1
			r.SetTimer.start(now)
		}
		s.Phase = PhaseExerciseActive
		c.notifyStarted(ex, s.CurrentIndex)
	case PhaseRestBetweenSets:
		s.PhaseTimer.finish(now)
		s.currentRun().SetTimer.start(now)
		s.Phase = PhaseExerciseActive
	default:
		return fmt.Errorf("%w: advance in phase %s", ErrInvalidTransition, s.Phase)
	}
	c.save(ctx)
	return nil
}

// CompleteSet records the current set of a set-based exercise. The
// final set finishes the exercise; a duplicate call after that lands
// outside exercise_active and is rejected, so the exercise advances
// exactly once.
func (c *Controller) CompleteSet(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	if s.Phase != PhaseExerciseActive {
		return fmt.Errorf("%w: complete set in phase %s", ErrInvalidTransition, s.Phase)
	}
	ex := s.currentExercise()
	if !ex.Completion.SetBased() {
		return fmt.Errorf("%w: %s is not set-based", ErrInvalidTransition, ex.Completion.Mode)
	}
	c.closePauses(s, now)
	r := s.currentRun()
	r.SetTimer.finish(now)
	if r.CurrentSet >= ex.Completion.Sets {
		c.finishExercise(s, now, false)
	} else {
		r.CurrentSet++
		s.Phase = PhaseRestBetweenSets
		s.PhaseTimer.start(now)
	}
	c.save(ctx)
	return nil
}

// CompleteExercise finishes the current exercise: any time for the
// manual modes, only on the final set for set-based ones.
func (c *Controller) CompleteExercise(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	if s.Phase != PhaseExerciseActive {
		return fmt.Errorf("%w: complete exercise in phase %s", ErrInvalidTransition, s.Phase)
	}
	ex := s.currentExercise()
	if ex.Completion.SetBased() && s.currentRun().CurrentSet < ex.Completion.Sets {
		return fmt.Errorf("%w: set %d of %d not final", ErrInvalidTransition, s.currentRun().CurrentSet, ex.Completion.Sets)
	}
	c.closePauses(s, now)
	c.finishExercise(s, now, false)
	c.save(ctx)
	return nil
}

// Skip finishes the current exercise without requiring its target,
// marking the run skipped. Valid from any non-terminal phase; a run
// skipped before it ever became active gets a zero-length span.
func (c *Controller) Skip(ctx context.Context, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	c.closePauses(s, now)
	s.PhaseTimer.finish(now)
	c.finishExercise(s, now, true)
	c.save(ctx)
	return nil
}

// AdjustRest moves the session-wide rest override by delta, clamped
// to MinRest. Only defined while resting.
func (c *Controller) AdjustRest(ctx context.Context, delta time.Duration, now time.Time) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	if !s.Phase.Rest() {
		return fmt.Errorf("%w: adjust rest in phase %s", ErrInvalidTransition, s.Phase)
	}
	base := s.restOverride()
	if base == 0 {
		base = c.phaseTarget(s)
	}
	next := base + delta
	if next < MinRest {
		next = MinRest
	}
	s.RestOverrideSec = int(next / time.Second)
	c.save(ctx)
	return nil
}

// Abandon terminates the session immediately and clears the snapshot.
// No history record is written.
func (c *Controller) Abandon(ctx context.Context) error {
	s, err := c.mutable()
	if err != nil {
		return err
	}
	s.Phase = PhaseAbandoned
	c.clear(ctx)
	c.log.Info("session abandoned", "session_id", s.ID)
	return nil
}

// Finish emits the summary for a completed session to the history
// collaborator and clears the snapshot. Only valid from completed; a
// recording failure leaves the snapshot in place so Finish can be
// retried.
func (c *Controller) Finish(ctx context.Context, now time.Time) (Summary, error) {
	s := c.session
	if s == nil {
		return Summary{}, ErrNoSession
	}
	if s.Phase != PhaseCompleted {
		return Summary{}, fmt.Errorf("%w: finish in phase %s", ErrInvalidTransition, s.Phase)
	}
	sum := c.summarize(s, now)
	if c.recorder != nil {
		if err := c.recorder.Record(ctx, sum); err != nil {
			return Summary{}, fmt.Errorf("recording workout history: %w", err)
		}
	}
	if c.listener != nil {
		c.listener.OnWorkoutCompleted(sum)
	}
	c.clear(ctx)
	c.session = nil
	return sum, nil
}

// closePauses ends any open pause before an explicit progress
// transition: moving forward is an implicit resume, so no timer
// crosses a phase boundary still paused.
func (c *Controller) closePauses(s *Session, now time.Time) {
	s.PhaseTimer.resume(now)
	if s.CurrentIndex < len(s.Runs) {
		r := s.currentRun()
		r.Timer.resume(now)
		r.SetTimer.resume(now)
	}
}

// finishExercise closes the current run and moves the index forward.
// Callers save afterwards.
func (c *Controller) finishExercise(s *Session, now time.Time, skipped bool) {
	r := s.currentRun()
	if !r.Touched() {
		r.Timer.start(now)
	}
	r.SetTimer.finish(now)
	r.Timer.finish(now)
	r.Skipped = skipped
	ex := s.currentExercise()
	if c.listener != nil {
		c.listener.OnExerciseCompleted(ex, s.CurrentIndex, skipped)
	}
	s.CurrentIndex++
	if s.CurrentIndex >= len(s.Runs) {
		s.Phase = PhaseCompleted
		s.PhaseTimer.finish(now)
		c.log.Info("workout completed", "session_id", s.ID)
	} else {
		s.Phase = PhaseRestBetweenExercises
		s.PhaseTimer.start(now)
	}
}

func (c *Controller) notifyStarted(ex workout.Exercise, index int) {
	if c.listener != nil {
		c.listener.OnExerciseStarted(ex, index)
	}
}

// mutable returns the session if a transition may be applied to it.
func (c *Controller) mutable() (*Session, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	if c.session.Phase.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidTransition, c.session.Phase)
	}
	return c.session, nil
}

// save serializes the whole session, last write wins. Failures are
// logged and parked in lastSaveErr; they never undo the transition
// that triggered them, because losing one write is recoverable and
// losing live progress is not.
func (c *Controller) save(ctx context.Context) {
	blob, err := json.Marshal(c.session)
	if err != nil {
		c.lastSaveErr = err
		c.log.Warn("snapshot marshal failed", "error", err)
		return
	}
	if err := c.store.Save(ctx, blob); err != nil {
		c.lastSaveErr = err
		c.log.Warn("snapshot write failed", "error", err)
		return
	}
	c.lastSaveErr = nil
}

func (c *Controller) clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("snapshot clear failed", "error", err)
	}
}
