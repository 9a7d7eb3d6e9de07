package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/artpar/stackd/internal/core/envfile"
	"github.com/artpar/stackd/internal/shell/docker"
	"github.com/artpar/stackd/internal/shell/runner"
	"github.com/artpar/stackd/internal/shell/store"
)

// runtime bundles the store, Docker client and runner that lifecycle
// commands operate through. openRuntime wires all three; commands that
// never touch containers use openStore instead so they work without a
// reachable Docker daemon.
type runtime struct {
	store  *store.SQLiteStore
	docker docker.Client
	runner *runner.Runner
	logger *slog.Logger
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore() (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return s, nil
}

func openRuntime() (*runtime, error) {
	logger := newLogger()

	s, err := openStore()
	if err != nil {
		return nil, err
	}

	d, err := docker.NewDockerClient(dockerHost)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	if err := d.Ping(); err != nil {
		s.Close()
		d.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	return &runtime{
		store:  s,
		docker: d,
		runner: runner.NewRunner(d, store.NewEventRecorder(s, logger), logger, configDir),
		logger: logger,
	}, nil
}

func (r *runtime) Close() {
	r.docker.Close()
	r.store.Close()
}

// loadEnvFile reads a .env file from disk into a variable map.
func loadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()
	return envfile.Parse(f)
}
