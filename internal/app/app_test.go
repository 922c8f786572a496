package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericksa/keiyakucheck/internal/config"
	"github.com/ericksa/keiyakucheck/internal/laws"
	"github.com/ericksa/keiyakucheck/internal/speculative"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Server:   config.ServerConfig{Addr: ":0"},
		LLM:      config.LLMConfig{Enabled: false},
		Cache:    config.CacheConfig{Backend: "sqlite", Path: filepath.Join(dir, "cache.db"), Capacity: 10},
		Audit:    config.AuditConfig{Enabled: true, Path: filepath.Join(dir, "audit.db")},
		Analysis: config.AnalysisConfig{SpeculationTTL: time.Minute},
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Auditor.Enabled())
	assert.FileExists(t, cfg.Cache.Path)

	report := a.Coordinator.Analyze(context.Background(), "報酬を支払う。", laws.DefaultContext())
	assert.Equal(t, speculative.AIAbsent, report.AI.Status)

	n, err := a.Cache.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_Invalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Capacity = 0
	_, err := New(cfg)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNew_FallsBackToMemory(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	cfg.Cache.Path = filepath.Join(blocker, "cache.db")
	cfg.Audit.Enabled = false

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Auditor)
	assert.NotNil(t, a.Cache)
	assert.NoFileExists(t, cfg.Cache.Path)
}

func TestNew_UnreachableStoresDoNotStopStartup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "minio"
	cfg.Cache.MinIO = config.MinIOConfig{Endpoint: "127.0.0.1:1", Bucket: "keiyaku"}
	cfg.Sink.PostgresURL = "postgres://nobody@127.0.0.1:1/keiyaku?sslmode=disable&connect_timeout=1"

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Sink)
	report := a.Coordinator.Analyze(context.Background(), "報酬を支払う。", laws.DefaultContext())
	assert.NotEmpty(t, report.Checkpoints.Results)
}

func TestStartHousekeeping(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.PruneSchedule = "@every 1h"
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.StartHousekeeping())
}
