package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestCurrentSessionAbsent verifies a 404 from the session endpoint
// becomes (nil, nil), not an error.
func TestCurrentSessionAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no active session"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	st, err := c.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Errorf("state = %+v, want nil", st)
	}
}

// TestCurrentSessionActive verifies the live state decodes through.
func TestCurrentSessionActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/session" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"phase":"exercise_active","current_index":2,"elapsed_sec":12.5,"remaining_sec":17.5}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	st, err := c.CurrentSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st == nil {
		t.Fatal("state = nil, want active session")
	}
	if st.CurrentIndex != 2 {
		t.Errorf("current_index = %d, want 2", st.CurrentIndex)
	}
	if st.RemainingSec == nil || *st.RemainingSec != 17.5 {
		t.Errorf("remaining_sec = %v, want 17.5", st.RemainingSec)
	}
}

// TestQuerySessionsPassesRange verifies the time range lands in the
// query string.
func TestQuerySessionsPassesRange(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start") != start.Format(time.RFC3339) {
			t.Errorf("start = %q", q.Get("start"))
		}
		if q.Get("end") != end.Format(time.RFC3339) {
			t.Errorf("end = %q", q.Get("end"))
		}
		w.Write([]byte(`[{"workout_name":"Strength","duration_sec":1800}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	rows, err := c.QuerySessions(context.Background(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].WorkoutName != "Strength" {
		t.Errorf("rows = %+v", rows)
	}
}

// TestGetSessionNotFound verifies a missing history session surfaces
// as an error, unlike the current-session 404.
func TestGetSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	if _, err := c.GetSession(context.Background(), uuid.New()); err == nil {
		t.Error("expected error for missing session")
	}
}

// TestServerErrorSurfaced verifies non-200 responses carry the body
// in the error.
func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.TrainingVolume(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
}
