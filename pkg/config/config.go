// Package config loads the run configuration from environment variables.
// The core packages consume this configuration; they do not read the
// environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ghcatalog/extractor/pkg/cursor"
)

// DefaultRequiredFields is the field set a flattened record must carry to be
// included in an artifact.
var DefaultRequiredFields = []string{
	"id", "name", "full_name", "owner", "html_url", "description",
	"created_at", "updated_at", "pushed_at", "size", "stargazers_count",
	"watchers_count", "language", "forks_count", "open_issues_count",
	"default_branch",
}

// Test-mode ceilings. Test mode runs the same state machine with a small
// fixed budget and batch.
const (
	testModeBudget   = 10
	testModePageSize = 10
)

// Config holds the full run configuration.
type Config struct {
	// Pipeline names this extraction in cursors, artifact keys, and logs.
	Pipeline string

	// GitHub API
	Token         string
	APICallBudget int
	PageSize      int

	// Validation
	RequiredFields []string

	// Response cache
	CacheEnabled bool
	CacheStore   string // "fs" or "redis"
	CacheDir     string
	RedisAddr    string

	// Cursor store
	CursorBackend cursor.Backend
	CursorFile    string
	CursorEnvVar  string
	CursorBucket  string
	CursorKey     string
	CursorTable   string

	// Artifact sink
	ArtifactBucket string
	ArtifactPrefix string
	DatePartition  bool
	SkipUpload     bool

	// Metrics endpoint; empty disables the exporter.
	MetricsAddr string

	TestMode bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Pipeline:       getEnv("GHX_PIPELINE", "github-repos"),
		Token:          getEnv("GITHUB_TOKEN", ""),
		APICallBudget:  getEnvInt("GHX_API_CALL_BUDGET", 60),
		PageSize:       getEnvInt("GHX_PAGE_SIZE", 100),
		RequiredFields: getEnvList("GHX_REQUIRED_FIELDS", DefaultRequiredFields),
		CacheEnabled:   getEnvBool("GHX_CACHE_ENABLED", true),
		CacheStore:     getEnv("GHX_CACHE_STORE", "fs"),
		CacheDir:       getEnv("GHX_CACHE_DIR", ".cache/github"),
		RedisAddr:      getEnv("GHX_REDIS_ADDR", "localhost:6379"),
		CursorBackend:  cursor.Backend(getEnv("GHX_CURSOR_BACKEND", "file")),
		CursorFile:     getEnv("GHX_CURSOR_FILE", ".cursor/github-repos"),
		CursorEnvVar:   getEnv("GHX_CURSOR_ENV_VAR", "GHX_CURSOR"),
		CursorBucket:   getEnv("GHX_CURSOR_BUCKET", ""),
		CursorKey:      getEnv("GHX_CURSOR_KEY", "cursors/github-repos"),
		CursorTable:    getEnv("GHX_CURSOR_TABLE", ""),
		ArtifactBucket: getEnv("GHX_ARTIFACT_BUCKET", ""),
		ArtifactPrefix: getEnv("GHX_ARTIFACT_PREFIX", "github"),
		DatePartition:  getEnvBool("GHX_DATE_PARTITION", true),
		SkipUpload:     getEnvBool("GHX_SKIP_UPLOAD", false),
		MetricsAddr:    getEnv("GHX_METRICS_ADDR", ""),
		TestMode:       getEnvBool("GHX_TEST_MODE", false),
	}

	if cfg.TestMode {
		cfg.ApplyTestMode()
	}

	return cfg
}

// ApplyTestMode switches the configuration into test mode: the fixed small
// budget and page size override whatever the environment set.
func (c *Config) ApplyTestMode() {
	c.TestMode = true
	c.APICallBudget = testModeBudget
	c.PageSize = testModePageSize
}

// Validate checks that the configured backends have what they need.
func (c *Config) Validate() error {
	if c.APICallBudget < 0 {
		return fmt.Errorf("api call budget must not be negative")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}

	switch c.CursorBackend {
	case cursor.BackendFile:
		if c.CursorFile == "" {
			return fmt.Errorf("GHX_CURSOR_FILE is required for the file cursor backend")
		}
	case cursor.BackendEnv:
		if c.CursorEnvVar == "" {
			return fmt.Errorf("GHX_CURSOR_ENV_VAR is required for the env cursor backend")
		}
	case cursor.BackendS3:
		if c.CursorBucket == "" || c.CursorKey == "" {
			return fmt.Errorf("GHX_CURSOR_BUCKET and GHX_CURSOR_KEY are required for the s3 cursor backend")
		}
	case cursor.BackendDynamoDB:
		if c.CursorTable == "" {
			return fmt.Errorf("GHX_CURSOR_TABLE is required for the dynamodb cursor backend")
		}
	default:
		return fmt.Errorf("unknown cursor backend %q", c.CursorBackend)
	}

	switch c.CacheStore {
	case "fs", "redis":
	default:
		return fmt.Errorf("unknown cache store %q", c.CacheStore)
	}

	if !c.SkipUpload && c.ArtifactBucket == "" {
		return fmt.Errorf("GHX_ARTIFACT_BUCKET is required unless upload is skipped")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var fields []string
	for _, f := range strings.Split(value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return defaultValue
	}
	return fields
}
