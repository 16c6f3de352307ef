package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/workout"
)

// mutator wraps the engine calls whose only inputs are context and
// now. Every mutator responds with the refreshed state view so the
// UI re-renders from one round trip.
func (s *Server) mutator(fn func(context.Context, time.Time) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := fn(r.Context(), s.now()); err != nil {
			writeEngineError(w, err)
			return
		}
		s.writeState(w)
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var def workout.Workout
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	fillIDs(&def)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.Start(r.Context(), def, s.now()); err != nil {
		writeEngineError(w, err)
		return
	}
	st, err := s.ctrl.State(s.now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeState(w)
}

func (s *Server) handleAdjustRest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeltaSeconds int `json:"delta_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delta := time.Duration(body.DeltaSeconds) * time.Second
	if err := s.ctrl.AdjustRest(r.Context(), delta, s.now()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.writeState(w)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.Abandon(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.ctrl.Finish(r.Context(), s.now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleQueryHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sessions, err := s.history.QuerySessions(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleTrainingVolume(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	volume, err := s.history.TrainingVolume(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, volume)
}

func (s *Server) handleGetHistorySession(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return
	}

	detail, err := s.history.GetSession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// writeState responds with the current derived view. Callers hold mu.
// A parked snapshot write failure travels along as a warning; it
// never blocks the response because in-memory state is authoritative
// for the live session.
func (s *Server) writeState(w http.ResponseWriter) {
	st, err := s.ctrl.State(s.now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := stateResponse{State: st}
	if saveErr := s.ctrl.LastSaveErr(); saveErr != nil {
		resp.PersistenceWarning = saveErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type stateResponse struct {
	engine.State
	PersistenceWarning string `json:"persistence_warning,omitempty"`
}

// fillIDs assigns identifiers the inline definition omitted. The
// server stores no workout library; definitions arrive whole.
func fillIDs(def *workout.Workout) {
	if def.ID == uuid.Nil {
		def.ID = uuid.New()
	}
	for i := range def.Exercises {
		if def.Exercises[i].ID == uuid.Nil {
			def.Exercises[i].ID = uuid.New()
		}
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNoSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidWorkout):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
		return
	}

	end, err = time.Parse(time.RFC3339, endStr)
	if err != nil {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Date-only end is inclusive of that day
		end = end.AddDate(0, 0, 1)
	}
	return
}
