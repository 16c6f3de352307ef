package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/history"
)

// HTTPClient implements DataSource by calling the repflow REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the session lives on the server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CurrentSession returns the live session view, or nil when the
// server reports no session.
func (c *HTTPClient) CurrentSession(ctx context.Context) (*engine.State, error) {
	var st engine.State
	found, err := c.get(ctx, "/api/v1/session", nil, &st)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

func (c *HTTPClient) QuerySessions(ctx context.Context, start, end time.Time) ([]history.SessionRow, error) {
	var rows []history.SessionRow
	_, err := c.get(ctx, "/api/v1/history", rangeParams(start, end), &rows)
	return rows, err
}

func (c *HTTPClient) GetSession(ctx context.Context, sessionID uuid.UUID) (*history.SessionDetail, error) {
	var detail history.SessionDetail
	found, err := c.get(ctx, "/api/v1/history/"+sessionID.String(), nil, &detail)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return &detail, nil
}

func (c *HTTPClient) TrainingVolume(ctx context.Context, start, end time.Time) (history.Volume, error) {
	var v history.Volume
	_, err := c.get(ctx, "/api/v1/history/volume", rangeParams(start, end), &v)
	return v, err
}

func rangeParams(start, end time.Time) url.Values {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	return params
}

// get performs a GET and decodes JSON into out. Returns false without
// error on 404, which the API uses for "nothing there".
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return true, nil
}
