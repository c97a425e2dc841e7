// Scenariod is the incident-scenario generation daemon.
//
// It serves the run API over HTTP: starting scenario runs, inspecting their
// timelines and resolving interactive decisions. Each run drives the inject
// pipeline against its own world state and audit file.
//
// Usage:
//
//	# Start with defaults (stub-free, needs an oracle endpoint)
//	scenariod
//
//	# Configure via file and environment
//	scenariod -config /etc/scenariod/config.yaml
//	SCENARIOD_ORACLE_BACKEND=stub scenariod
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/scenariod/internal/config"
	"github.com/fyrsmithlabs/scenariod/internal/knowledge"
	"github.com/fyrsmithlabs/scenariod/internal/logging"
	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/orchestrator"
	"github.com/fyrsmithlabs/scenariod/internal/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scenariod %s (%s)\n", version, gitCommit)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("scenariod: %v", err)
	}
}

// run wires the daemon and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&cfg.Logging, nil)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zlog := logger.Underlying()

	var o oracle.Oracle
	switch cfg.Oracle.Backend {
	case "stub":
		o = oracle.NewStub()
		logger.Warn(ctx, "using the stub oracle; narratives will be mechanical")
	default:
		o, err = oracle.NewClient(cfg.Oracle.Client, zlog)
		if err != nil {
			return fmt.Errorf("initializing oracle client: %w", err)
		}
	}

	retriever, err := knowledge.NewRetriever(cfg.Knowledge, nil, zlog)
	if err != nil {
		return fmt.Errorf("opening technique store: %w", err)
	}
	if err := retriever.Seed(ctx, knowledge.DefaultCatalog()); err != nil {
		return fmt.Errorf("seeding technique catalog: %w", err)
	}

	metrics := orchestrator.NewMetrics(prometheus.DefaultRegisterer)

	manager := server.NewManager(server.ManagerConfig{
		AuditDir: cfg.Audit.Dir,
		Run:      cfg.Run,
		Critic:   cfg.Critic,
	}, o, retriever, metrics, zlog)

	srv, err := server.NewServer(manager, cfg.Server.Addr, zlog)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info(ctx, "scenariod started",
		zap.String("addr", cfg.Server.Addr),
		zap.String("oracle_backend", cfg.Oracle.Backend),
		zap.String("version", version))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
