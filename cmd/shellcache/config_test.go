package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shellcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9000"
admin: ":9090"
origin: http://localhost:8000
precache:
  - /
  - /index.html
  - /scan.html
cache:
  name: spedbusmd
  version: v3
  backend: leveldb
  path: /var/lib/shellcache
`)

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", config.Listen)
	require.Equal(t, ":9090", config.Admin)
	require.Equal(t, "http://localhost:8000", config.Origin)
	require.Equal(t, []string{"/", "/index.html", "/scan.html"}, config.Precache)
	require.Equal(t, "leveldb", config.Cache.Backend)
	require.Equal(t, "spedbusmd-v3", config.Cache.Name+"-"+config.Cache.Version)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "origin: http://localhost:8000\n")

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", config.Listen)
	require.Empty(t, config.Admin)
	require.Equal(t, []string{"/"}, config.Precache)
	require.Equal(t, "sqlite", config.Cache.Backend)
	require.Equal(t, "spedbusmd", config.Cache.Name)
	require.Equal(t, "v1", config.Cache.Version)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
origin: http://localhost:8000
cache:
  version: v1
`)
	t.Setenv("SHELLCACHE_CACHE_VERSION", "v2")
	t.Setenv("SHELLCACHE_PRECACHE", "/,/index.html")

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "v2", config.Cache.Version)
	require.Equal(t, []string{"/", "/index.html"}, config.Precache)
}

func TestLoadConfigRequiresOrigin(t *testing.T) {
	path := writeConfigFile(t, "listen: \":9000\"\n")

	_, err := loadConfig(path)
	require.ErrorContains(t, err, "origin is required")
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, `
origin: http://localhost:8000
cache:
  backend: redis
`)

	_, err := loadConfig(path)
	require.ErrorContains(t, err, "cache.backend")
}
