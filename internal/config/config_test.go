package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "repflow"
  user: "repflow"
  password: "secret"
  sslmode: "disable"
auth:
  api_key: "test-key-123"
snapshot:
  dir: "/var/lib/repflow"
engine:
  get_ready_seconds: 10
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "repflow" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "repflow")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
	if cfg.Snapshot.Dir != "/var/lib/repflow" {
		t.Errorf("snapshot.dir = %q, want %q", cfg.Snapshot.Dir, "/var/lib/repflow")
	}
	if cfg.Engine.GetReadySeconds != 10 {
		t.Errorf("engine.get_ready_seconds = %d, want 10", cfg.Engine.GetReadySeconds)
	}
}

// TestEnvOverride verifies that REPFLOW_ env vars take precedence over YAML values.
// This ensures production deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("REPFLOW_DB_HOST", "override-host")
	t.Setenv("REPFLOW_SERVER_PORT", "9999")
	t.Setenv("REPFLOW_SNAPSHOT_DIR", "/tmp/snaps")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "override-host" {
		t.Errorf("database.host = %q, want %q", cfg.Database.Host, "override-host")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Snapshot.Dir != "/tmp/snaps" {
		t.Errorf("snapshot.dir = %q, want %q", cfg.Snapshot.Dir, "/tmp/snaps")
	}
	// Unchanged fields should keep YAML values
	if cfg.Database.Name != "repflow" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "repflow")
	}
}

// TestValidationMissingSnapshotDir verifies that missing required fields produce a clear error.
func TestValidationMissingSnapshotDir(t *testing.T) {
	yaml := `
server:
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "repflow"
  user: "repflow"
auth:
  api_key: "key"
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing snapshot.dir")
	}
}

// TestValidationTailscaleHostname verifies tailscale mode demands a hostname.
func TestValidationTailscaleHostname(t *testing.T) {
	yaml := validYAML + `
tailscale:
  enabled: true
`
	_, err := Load(writeTemp(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for missing tailscale.hostname")
	}
}

// TestDSN verifies the PostgreSQL connection string shape and the
// sslmode default.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "repflow", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/repflow?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
