package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meltforce/repflow/internal/config"
	"github.com/meltforce/repflow/internal/engine"
	"github.com/meltforce/repflow/internal/history"
	"github.com/meltforce/repflow/internal/server"
	"github.com/meltforce/repflow/internal/snapshot"
	"github.com/meltforce/repflow/internal/workout"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Repflow starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := history.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect history database
	ctx := context.Background()
	hist, err := history.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer hist.Close()
	log.Info("history database connected")

	// Open local snapshot store
	snapStore, err := snapshot.OpenSQLite(cfg.Snapshot.Dir)
	if err != nil {
		log.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer snapStore.Close()

	// Create the execution controller
	ctrl := engine.New(snapStore, log)
	ctrl.SetRecorder(hist)
	ctrl.SetListener(cueLogger{log: log})
	if cfg.Engine.GetReadySeconds > 0 {
		ctrl.SetGetReadyDuration(time.Duration(cfg.Engine.GetReadySeconds) * time.Second)
	}

	// Cold-start recovery: adopt any valid snapshot left behind.
	resumed, err := ctrl.Load(ctx)
	if err != nil {
		log.Error("snapshot load failed", "error", err)
		os.Exit(1)
	}
	if resumed {
		log.Info("resuming interrupted session", "phase", ctrl.Phase(), "exercise", ctrl.CurrentIndex())
	}

	// Create server
	srv := server.New(ctrl, hist, cfg.Auth.APIKey, log)

	// Start server over tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// cueLogger is the lifecycle collaborator for this deployment: it
// just logs, since audio cues belong to the UI shell.
type cueLogger struct {
	log *slog.Logger
}

func (c cueLogger) OnExerciseStarted(ex workout.Exercise, index int) {
	c.log.Info("exercise started", "index", index, "name", ex.Name, "mode", ex.Completion.Mode)
}

func (c cueLogger) OnExerciseCompleted(ex workout.Exercise, index int, skipped bool) {
	c.log.Info("exercise completed", "index", index, "name", ex.Name, "skipped", skipped)
}

func (c cueLogger) OnWorkoutCompleted(sum engine.Summary) {
	c.log.Info("workout finished",
		"workout", sum.WorkoutName,
		"duration", sum.Duration().String(),
		"completed", sum.CompletedCount(),
		"skipped", sum.SkippedCount(),
	)
}
