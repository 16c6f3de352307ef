package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/repflow/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// repflow-mcp runs an MCP server over stdio, backed by a remote
// repflow instance's REST API. Logs go to stderr; stdout carries the
// protocol.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the repflow server")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds := mcp.NewHTTPClient(*baseURL)
	s := mcp.New(ds, Version, log)

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
