package config

import (
	"fmt"
	"os"
	"time"
)

// Ledger backend selection.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

type Config struct {
	Ledger      string // AGORA_LEDGER ("memory" or "postgres", default "memory")
	DatabaseURL string // AGORA_DATABASE_URL (required for the postgres ledger)
	NATSURL     string // AGORA_NATS_URL (optional, empty = no event forwarding, no RPC)
	Agent       string // AGORA_AGENT (actor identity; CLI flag overrides)

	CacheTTL time.Duration // AGORA_CACHE_TTL (default 5m)

	// Snapshot settings
	SnapshotInterval   time.Duration // AGORA_SNAPSHOT_INTERVAL (default 0 = disabled)
	SnapshotFile       string        // AGORA_SNAPSHOT_FILE (enables file snapshots when set)
	SnapshotS3Bucket   string        // AGORA_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // AGORA_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // AGORA_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // AGORA_SNAPSHOT_S3_KEY (default "agora/snapshot.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		Ledger:             envOrDefault("AGORA_LEDGER", LedgerMemory),
		DatabaseURL:        os.Getenv("AGORA_DATABASE_URL"),
		NATSURL:            os.Getenv("AGORA_NATS_URL"),
		Agent:              os.Getenv("AGORA_AGENT"),
		SnapshotFile:       os.Getenv("AGORA_SNAPSHOT_FILE"),
		SnapshotS3Bucket:   os.Getenv("AGORA_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("AGORA_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("AGORA_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("AGORA_SNAPSHOT_S3_KEY", "agora/snapshot.jsonl"),
	}

	switch c.Ledger {
	case LedgerMemory:
	case LedgerPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("AGORA_DATABASE_URL is required for the postgres ledger")
		}
	default:
		return nil, fmt.Errorf("AGORA_LEDGER: unknown backend %q", c.Ledger)
	}

	ttl, err := durationEnv("AGORA_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	c.CacheTTL = ttl

	interval, err := durationEnv("AGORA_SNAPSHOT_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	c.SnapshotInterval = interval

	return c, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
