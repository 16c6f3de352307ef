package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/history"
)

// DataSource abstracts the data layer for MCP tools. HTTPClient
// satisfies it by calling the repflow REST API, so the MCP binary can
// run locally over stdio while the session lives on the server.
type DataSource interface {
	// CurrentSession returns the live session view, or nil when no
	// workout is in progress.
	CurrentSession(ctx context.Context) (*engine.State, error)
	QuerySessions(ctx context.Context, start, end time.Time) ([]history.SessionRow, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*history.SessionDetail, error)
	TrainingVolume(ctx context.Context, start, end time.Time) (history.Volume, error)
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)
