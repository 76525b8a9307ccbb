package shellcache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spedbusmd/shellcache/cache"

	"github.com/stretchr/testify/require"
)

func TestAdminStatus(t *testing.T) {
	store := cache.NewMemoryStore()
	worker := newLifecycleWorker(t, store, []string{"/", "/index.html"}, shellHandler())
	worker.Install(context.Background())
	admin := worker.AdminHandler()

	rr := httptest.NewRecorder()
	admin.ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var status struct {
		Generation string `json:"generation"`
		Entries    int    `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, "spedbusmd-v2", status.Generation)
	require.Equal(t, 2, status.Entries)
}

func TestAdminInstallReturnsReport(t *testing.T) {
	store := cache.NewMemoryStore()
	worker := newLifecycleWorker(t, store, []string{"/index.html", "/missing.html"}, shellHandler())
	admin := worker.AdminHandler()

	rr := httptest.NewRecorder()
	admin.ServeHTTP(rr, httptest.NewRequest("POST", "/install", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var report InstallReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, []string{"/index.html"}, report.Added)
	require.Contains(t, report.Failed, "/missing.html")
}

func TestAdminActivate(t *testing.T) {
	store := cache.NewMemoryStore()
	worker := newLifecycleWorker(t, store, []string{"/index.html"}, shellHandler())
	require.NoError(t, store.Put(context.Background(), "spedbusmd-v1", "GET /", &cache.Entry{Status: 200}))
	worker.Install(context.Background())
	admin := worker.AdminHandler()

	rr := httptest.NewRecorder()
	admin.ServeHTTP(rr, httptest.NewRequest("POST", "/activate", nil))

	require.Equal(t, http.StatusNoContent, rr.Code)
	generations, err := store.Generations(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"spedbusmd-v2"}, generations)
}
