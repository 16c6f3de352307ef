package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/repflow/internal/engine"
)

// SessionRow is one finished workout session.
type SessionRow struct {
	ID                 uuid.UUID `json:"id"`
	WorkoutID          uuid.UUID `json:"workout_id"`
	WorkoutName        string    `json:"workout_name"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	DurationSec        int       `json:"duration_sec"`
	ExercisesTotal     int       `json:"exercises_total"`
	ExercisesCompleted int       `json:"exercises_completed"`
	ExercisesSkipped   int       `json:"exercises_skipped"`
}

// ExerciseRow is one exercise outcome within a finished session.
type ExerciseRow struct {
	SessionID         uuid.UUID `json:"session_id"`
	Position          int       `json:"position"`
	ExerciseID        uuid.UUID `json:"exercise_id"`
	ExerciseName      string    `json:"exercise_name"`
	Completed         bool      `json:"completed"`
	Skipped           bool      `json:"skipped"`
	ActualSets        int       `json:"actual_sets"`
	ActualDurationSec int       `json:"actual_duration_sec"`
}

// SessionDetail is a session with its per-exercise rows.
type SessionDetail struct {
	SessionRow
	Exercises []ExerciseRow `json:"exercises"`
}

// Record stores one finished-workout summary. Implements
// engine.Recorder. The session row and its exercise rows land in one
// transaction so a half-written session never surfaces.
func (db *DB) Record(ctx context.Context, sum engine.Summary) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning history tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO session_history (id, workout_id, workout_name, started_at, ended_at,
		 duration_sec, exercises_total, exercises_completed, exercises_skipped)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT DO NOTHING`,
		sum.SessionID, sum.WorkoutID, sum.WorkoutName, sum.StartedAt, sum.EndedAt,
		int(sum.Duration().Seconds()), len(sum.Exercises), sum.CompletedCount(), sum.SkippedCount())
	if err != nil {
		return fmt.Errorf("inserting session history: %w", err)
	}

	if len(sum.Exercises) > 0 {
		query := `INSERT INTO session_exercises (session_id, position, exercise_id, exercise_name, completed, skipped, actual_sets, actual_duration_sec) VALUES `
		args := make([]any, 0, len(sum.Exercises)*8)
		valueStrings := make([]string, 0, len(sum.Exercises))

		for i, e := range sum.Exercises {
			base := i * 8
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
			))
			args = append(args, sum.SessionID, i, e.ExerciseID, e.Name,
				e.Completed, e.Skipped, e.ActualSets, int(e.ActualDuration.Seconds()))
		}

		query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting session exercises: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// QuerySessions retrieves finished sessions in a time range, newest
// first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time) ([]SessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, workout_id, workout_name, started_at, ended_at, duration_sec,
		 exercises_total, exercises_completed, exercises_skipped
		 FROM session_history
		 WHERE started_at >= $1 AND started_at < $2
		 ORDER BY started_at DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying session history: %w", err)
	}
	defer rows.Close()

	return scanSessionRows(rows)
}

// GetSession retrieves one finished session with its exercise rows.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, workout_id, workout_name, started_at, ended_at, duration_sec,
		 exercises_total, exercises_completed, exercises_skipped
		 FROM session_history
		 WHERE id = $1`,
		sessionID)

	var s SessionRow
	err := row.Scan(&s.ID, &s.WorkoutID, &s.WorkoutName, &s.StartedAt, &s.EndedAt,
		&s.DurationSec, &s.ExercisesTotal, &s.ExercisesCompleted, &s.ExercisesSkipped)
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	detail := &SessionDetail{SessionRow: s}

	exRows, err := db.Pool.Query(ctx,
		`SELECT session_id, position, exercise_id, exercise_name, completed, skipped,
		 actual_sets, actual_duration_sec
		 FROM session_exercises
		 WHERE session_id = $1
		 ORDER BY position ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session exercises: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var e ExerciseRow
		if err := exRows.Scan(&e.SessionID, &e.Position, &e.ExerciseID, &e.ExerciseName,
			&e.Completed, &e.Skipped, &e.ActualSets, &e.ActualDurationSec); err != nil {
			return nil, fmt.Errorf("scanning session exercise: %w", err)
		}
		detail.Exercises = append(detail.Exercises, e)
	}

	return detail, exRows.Err()
}

// Volume is aggregate training volume over a time range.
type Volume struct {
	Sessions           int `json:"sessions"`
	TotalDurationSec   int `json:"total_duration_sec"`
	ExercisesCompleted int `json:"exercises_completed"`
	ExercisesSkipped   int `json:"exercises_skipped"`
}

// TrainingVolume aggregates finished sessions over a time range.
func (db *DB) TrainingVolume(ctx context.Context, start, end time.Time) (Volume, error) {
	var v Volume
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(duration_sec),0),
		 COALESCE(SUM(exercises_completed),0), COALESCE(SUM(exercises_skipped),0)
		 FROM session_history
		 WHERE started_at >= $1 AND started_at < $2`,
		start, end).Scan(&v.Sessions, &v.TotalDurationSec, &v.ExercisesCompleted, &v.ExercisesSkipped)
	if err != nil {
		return Volume{}, fmt.Errorf("querying training volume: %w", err)
	}
	return v, nil
}

func scanSessionRows(rows pgx.Rows) ([]SessionRow, error) {
	var result []SessionRow
	for rows.Next() {
		var s SessionRow
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.WorkoutName, &s.StartedAt, &s.EndedAt,
			&s.DurationSec, &s.ExercisesTotal, &s.ExercisesCompleted, &s.ExercisesSkipped); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
