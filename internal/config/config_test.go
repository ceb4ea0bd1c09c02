package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  path: ./forr.db
`)
	cfg, err := Load("test", path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./forr.db", cfg.Database.GetDSN())
	assert.Equal(t, 1024, cfg.Forr.MaxSubWorkflowInstances)
	assert.Equal(t, 1, cfg.Forr.DegreeOfParallelism)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Forr.LockTTL)
	assert.Equal(t, 6, cfg.Worker.Queues["forr"])
	assert.Equal(t, 10.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, 20, cfg.Server.RateLimitBurst)
}

func TestLoadFileOverridesAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
forr:
  degree_of_parallelism: 4
  max_sub_workflow_instances: 16
worker:
  poll_interval: 2s
`)
	t.Setenv("APP_DATABASE_HOST", "db.internal")

	cfg, err := Load("test", path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Forr.DegreeOfParallelism)
	assert.Equal(t, 16, cfg.Forr.MaxSubWorkflowInstances)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.GetDSN(), "host=db.internal")
	assert.Same(t, cfg, Get())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
`)
	_, err := Load("test", path)
	assert.Error(t, err)

	path = writeConfig(t, `
forr:
  degree_of_parallelism: 0
`)
	_, err = Load("test", path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("test", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100000, cfg.Forr.MaxProductSize)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}
