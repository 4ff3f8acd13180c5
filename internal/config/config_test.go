package config

import (
	"testing"
	"time"
)

// allEnvVars lists every setting that must be cleared between tests.
var allEnvVars = []string{
	"AGORA_LEDGER", "AGORA_DATABASE_URL", "AGORA_NATS_URL", "AGORA_AGENT",
	"AGORA_CACHE_TTL", "AGORA_SNAPSHOT_INTERVAL", "AGORA_SNAPSHOT_FILE",
	"AGORA_SNAPSHOT_S3_BUCKET", "AGORA_SNAPSHOT_S3_ENDPOINT",
	"AGORA_SNAPSHOT_S3_REGION", "AGORA_SNAPSHOT_S3_KEY",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name        string
		env         map[string]string
		wantErr     bool
		wantLedger  string
		wantNATSURL string
	}{
		{
			name:       "Defaults",
			env:        map[string]string{},
			wantLedger: LedgerMemory,
		},
		{
			name:    "PostgresWithoutURL",
			env:     map[string]string{"AGORA_LEDGER": "postgres"},
			wantErr: true,
		},
		{
			name: "Postgres",
			env: map[string]string{
				"AGORA_LEDGER":       "postgres",
				"AGORA_DATABASE_URL": "postgres://db:5432/agora",
				"AGORA_NATS_URL":     "nats://localhost:4222",
			},
			wantLedger:  LedgerPostgres,
			wantNATSURL: "nats://localhost:4222",
		},
		{
			name:    "UnknownLedger",
			env:     map[string]string{"AGORA_LEDGER": "sqlite"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Ledger != tc.wantLedger {
				t.Errorf("Ledger = %q, want %q", cfg.Ledger, tc.wantLedger)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
			if cfg.DatabaseURL != tc.env["AGORA_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["AGORA_DATABASE_URL"])
			}
		})
	}
}

func TestLoadCacheTTL(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}

	t.Setenv("AGORA_CACHE_TTL", "30s")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}

	t.Setenv("AGORA_CACHE_TTL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid AGORA_CACHE_TTL")
	}
}

func TestLoadSnapshotDefaults(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SnapshotInterval != 0 {
		t.Errorf("SnapshotInterval = %v, want 0 (disabled)", cfg.SnapshotInterval)
	}
	if cfg.SnapshotS3Region != "us-east-1" {
		t.Errorf("SnapshotS3Region = %q, want %q", cfg.SnapshotS3Region, "us-east-1")
	}
	if cfg.SnapshotS3Key != "agora/snapshot.jsonl" {
		t.Errorf("SnapshotS3Key = %q, want %q", cfg.SnapshotS3Key, "agora/snapshot.jsonl")
	}
}

func TestLoadSnapshotCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("AGORA_SNAPSHOT_INTERVAL", "10m")
	t.Setenv("AGORA_SNAPSHOT_FILE", "/var/lib/agora/snapshot.jsonl")
	t.Setenv("AGORA_SNAPSHOT_S3_BUCKET", "my-bucket")
	t.Setenv("AGORA_SNAPSHOT_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("AGORA_SNAPSHOT_S3_REGION", "eu-west-1")
	t.Setenv("AGORA_SNAPSHOT_S3_KEY", "custom/key.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SnapshotInterval != 10*time.Minute {
		t.Errorf("SnapshotInterval = %v, want 10m", cfg.SnapshotInterval)
	}
	if cfg.SnapshotFile != "/var/lib/agora/snapshot.jsonl" {
		t.Errorf("SnapshotFile = %q", cfg.SnapshotFile)
	}
	if cfg.SnapshotS3Bucket != "my-bucket" {
		t.Errorf("SnapshotS3Bucket = %q", cfg.SnapshotS3Bucket)
	}
	if cfg.SnapshotS3Endpoint != "http://minio:9000" {
		t.Errorf("SnapshotS3Endpoint = %q", cfg.SnapshotS3Endpoint)
	}
	if cfg.SnapshotS3Region != "eu-west-1" {
		t.Errorf("SnapshotS3Region = %q", cfg.SnapshotS3Region)
	}
	if cfg.SnapshotS3Key != "custom/key.jsonl" {
		t.Errorf("SnapshotS3Key = %q", cfg.SnapshotS3Key)
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}
