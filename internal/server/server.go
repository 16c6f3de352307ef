package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/history"
)

// Server is the HTTP shell around one execution controller. The
// engine itself is single-threaded by contract, so the server owns
// the one mutex that serializes every handler touching it; inside the
// engine there are no locks to take.
type Server struct {
	mu      sync.Mutex
	ctrl    *engine.Controller
	history *history.DB
	log     *slog.Logger
	apiKey  string
	router  chi.Router

	// now is the ambient clock, swapped out in tests.
	now func() time.Time
}

// New creates a Server with all routes configured.
func New(ctrl *engine.Controller, hist *history.DB, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		ctrl:    ctrl,
		history: hist,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Session mutators (API key required)
	s.router.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleStartSession)
			r.Post("/pause", s.mutator(s.ctrl.Pause))
			r.Post("/resume", s.mutator(s.ctrl.Resume))
			r.Post("/advance", s.mutator(s.ctrl.Advance))
			r.Post("/complete-set", s.mutator(s.ctrl.CompleteSet))
			r.Post("/complete-exercise", s.mutator(s.ctrl.CompleteExercise))
			r.Post("/skip", s.mutator(s.ctrl.Skip))
			r.Post("/rest", s.handleAdjustRest)
			r.Post("/abandon", s.handleAbandon)
			r.Post("/finish", s.handleFinish)
		})
	})

	// History reads (open, like the dashboard)
	s.router.Get("/api/v1/history", s.handleQueryHistory)
	s.router.Get("/api/v1/history/volume", s.handleTrainingVolume)
	s.router.Get("/api/v1/history/{id}", s.handleGetHistorySession)
}
