package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghcatalog/extractor/pkg/cache"
	"github.com/ghcatalog/extractor/pkg/config"
	"github.com/ghcatalog/extractor/pkg/cursor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestBuildCache_Selection(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		store, err := buildCache(ctx, &config.Config{CacheEnabled: false})
		if err != nil {
			t.Fatalf("buildCache() failed: %v", err)
		}
		if store != nil {
			t.Error("Disabled cache should yield a nil store")
		}
	})

	t.Run("fs", func(t *testing.T) {
		store, err := buildCache(ctx, &config.Config{
			CacheEnabled: true,
			CacheStore:   "fs",
			CacheDir:     filepath.Join(t.TempDir(), "cache"),
		})
		if err != nil {
			t.Fatalf("buildCache() failed: %v", err)
		}
		if _, ok := store.(*cache.FSStore); !ok {
			t.Errorf("Store type = %T, want *cache.FSStore", store)
		}
	})
}

func TestBuildCursorStore_Selection(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		store, err := buildCursorStore(ctx, &config.Config{
			CursorBackend: cursor.BackendFile,
			CursorFile:    filepath.Join(t.TempDir(), "cursor"),
		})
		if err != nil {
			t.Fatalf("buildCursorStore() failed: %v", err)
		}
		if _, ok := store.(*cursor.FileStore); !ok {
			t.Errorf("Store type = %T, want *cursor.FileStore", store)
		}
	})

	t.Run("env", func(t *testing.T) {
		store, err := buildCursorStore(ctx, &config.Config{
			CursorBackend: cursor.BackendEnv,
			CursorEnvVar:  "GHX_CURSOR",
		})
		if err != nil {
			t.Fatalf("buildCursorStore() failed: %v", err)
		}
		if _, ok := store.(*cursor.EnvStore); !ok {
			t.Errorf("Store type = %T, want *cursor.EnvStore", store)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}

	// The budget gauge is registered as soon as any extractor package loads.
	if !strings.Contains(bodyStr, "ghx_budget_calls_remaining") {
		t.Error("Expected metrics output to contain ghx_budget_calls_remaining")
	}
}
