package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/groblegark/agora/internal/config"
	"github.com/groblegark/agora/internal/ledger"
	"github.com/groblegark/agora/internal/ledger/memory"
	"github.com/groblegark/agora/internal/ledger/natsrpc"
	"github.com/groblegark/agora/internal/ledger/pg"
	"github.com/groblegark/agora/internal/snapshot"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the shared ledger backend over NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	backend, cleanup, err := serveBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	url := cfg.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.MaxReconnects(-1), nats.ReconnectWait(time.Second))
	if err != nil {
		return fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	defer nc.Close()

	srv := natsrpc.NewServer(nc, backend, logger)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()
	logger.Info("serving", "nats", url, "ledger", cfg.Ledger)

	sched, err := serveSnapshots(cfg, backend, logger)
	if err != nil {
		return err
	}
	if sched != nil {
		sched.Start()
		defer sched.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// serveBackend opens the configured ledger. A memory ledger is reloaded from
// the snapshot file when one exists, so restarts keep the data.
func serveBackend(cfg *config.Config, logger *slog.Logger) (ledger.Caller, func(), error) {
	if cfg.Ledger == config.LedgerPostgres {
		store, err := pg.New(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening ledger database: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	mem := memory.New()
	if cfg.SnapshotFile != "" {
		data, err := os.ReadFile(cfg.SnapshotFile)
		switch {
		case err == nil:
			if err := snapshot.Restore(data, mem); err != nil {
				return nil, nil, fmt.Errorf("restoring %s: %w", cfg.SnapshotFile, err)
			}
			logger.Info("restored snapshot", "file", cfg.SnapshotFile)
		case !os.IsNotExist(err):
			return nil, nil, fmt.Errorf("reading %s: %w", cfg.SnapshotFile, err)
		}
	}
	return mem, func() {}, nil
}

// serveSnapshots builds the snapshot scheduler, or nil when disabled.
func serveSnapshots(cfg *config.Config, backend ledger.Caller, logger *slog.Logger) (*snapshot.Scheduler, error) {
	if cfg.SnapshotInterval <= 0 {
		return nil, nil
	}

	var destinations []snapshot.Destination
	if cfg.SnapshotFile != "" {
		destinations = append(destinations, snapshot.NewFileDestination(cfg.SnapshotFile))
	}
	if cfg.SnapshotS3Bucket != "" {
		s3dest, err := snapshot.NewS3Destination(context.Background(),
			cfg.SnapshotS3Bucket, cfg.SnapshotS3Key, cfg.SnapshotS3Region, cfg.SnapshotS3Endpoint)
		if err != nil {
			return nil, err
		}
		destinations = append(destinations, s3dest)
	}
	if len(destinations) == 0 {
		return nil, fmt.Errorf("AGORA_SNAPSHOT_INTERVAL set but no destination configured")
	}
	return snapshot.NewScheduler(backend, nil, destinations, cfg.SnapshotInterval, logger), nil
}
