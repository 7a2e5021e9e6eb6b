package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Defaults().Server, cfg.Server)
	assert.Equal(t, 20, cfg.Pagination.DefaultSize)
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "autocrud.yaml", `
server:
  adapter: httprouter
pagination:
  default_size: 50
excluded_models:
  - Audit*
`)
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("EXCLUDED_MODELS", "Session")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "httprouter", cfg.Server.Adapter)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10, cfg.Pagination.DefaultSize)
	assert.Equal(t, 500, cfg.Pagination.MaxSize)
	assert.Equal(t, []string{"Audit*", "Session"}, cfg.ExcludedModels)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvSelectsDeploymentFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "NAME=base\nSHARED=base\n")
	writeFile(t, dir, ".env.prod", "SHARED=prod\n")
	writeFile(t, dir, ".env.local", "SHARED=local\n")

	t.Setenv("RUNNING_IN_DOCKER", "")
	t.Setenv("ENV", "production")
	t.Setenv("NAME", "")
	t.Setenv("SHARED", "")

	require.NoError(t, LoadEnv(dir))

	assert.Equal(t, "base", os.Getenv("NAME"))
	assert.Equal(t, "prod", os.Getenv("SHARED"))
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	t.Setenv("ENV", "rpi")
	t.Setenv("RUNNING_IN_DOCKER", "")

	assert.NoError(t, LoadEnv(t.TempDir()))
}

func TestLoadEnvOnLAN(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env.lan", "ALLOWED_HOSTS=example.test\n")

	t.Setenv("RUNNING_IN_DOCKER", "")
	t.Setenv("ENV", "lan")
	t.Setenv("ALLOWED_HOSTS", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("LOCAL_IP", "")

	require.NoError(t, LoadEnv(dir))

	ip := os.Getenv("LOCAL_IP")
	require.NotEmpty(t, ip)
	assert.Equal(t, []string{"example.test", ip}, GetEnvList("ALLOWED_HOSTS"))
	assert.Contains(t, GetEnvList("ALLOWED_ORIGINS"), "http://"+ip+":5173")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LIST", " a, ,b ,")
	t.Setenv("FLAG", "Yes")
	t.Setenv("PADDED", "  value ")

	assert.Equal(t, []string{"a", "b"}, GetEnvList("LIST"))
	assert.True(t, GetBool("FLAG", "false"))
	assert.False(t, GetBool("UNSET_FLAG_FOR_TEST", "false"))
	assert.Equal(t, "value", GetEnv("PADDED", ""))
	assert.Equal(t, "fallback", GetEnv("UNSET_KEY_FOR_TEST", "fallback"))
}
