// gh-extract runs one extraction: list new repositories after the saved
// cursor, fetch their details under the run's call budget, validate and
// flatten them, upload one artifact, and advance the cursor.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghcatalog/extractor/pkg/cache"
	"github.com/ghcatalog/extractor/pkg/config"
	"github.com/ghcatalog/extractor/pkg/cursor"
	"github.com/ghcatalog/extractor/pkg/extract"
	"github.com/ghcatalog/extractor/pkg/github"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/ghcatalog/extractor/pkg/quota"
	"github.com/ghcatalog/extractor/pkg/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	useCache := flag.Bool("use-cache", true, "replay cached responses instead of refetching")
	skipUpload := flag.Bool("skip-upload", false, "finalize without uploading the artifact")
	testMode := flag.Bool("test-mode", false, "run with a small fixed call budget and batch")
	pretty := flag.Bool("pretty", false, "human-readable log output")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(getEnv("GHX_LOG_LEVEL", "info"))
	logCfg.Pretty = *pretty
	logger := logging.Setup(logCfg)

	cfg := config.Load()
	if *testMode {
		cfg.ApplyTestMode()
	}
	cfg.SkipUpload = cfg.SkipUpload || *skipUpload
	cfg.CacheEnabled = cfg.CacheEnabled && *useCache

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	cacheStore, err := buildCache(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up the response cache")
	}

	cursorStore, err := buildCursorStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up the cursor store")
	}

	budget := quota.NewBudget(cfg.APICallBudget, logging.NewLogger("budget"))

	clientCfg := github.DefaultConfig(budget)
	clientCfg.Token = cfg.Token
	clientCfg.Cache = cacheStore
	client, err := github.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create the API client")
	}

	var artifactSink extract.Sink
	if !cfg.SkipUpload {
		artifactSink, err = sink.NewS3Sink(ctx, sink.Config{
			Bucket:        cfg.ArtifactBucket,
			Prefix:        cfg.ArtifactPrefix,
			Pipeline:      cfg.Pipeline,
			DatePartition: cfg.DatePartition,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to set up the artifact sink")
		}
	}

	extractor, err := extract.New(extract.Config{
		Pipeline:       cfg.Pipeline,
		Client:         client,
		Budget:         budget,
		Cursor:         cursorStore,
		Sink:           artifactSink,
		PageSize:       cfg.PageSize,
		RequiredFields: cfg.RequiredFields,
		SkipUpload:     cfg.SkipUpload,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create the extractor")
	}

	// An interrupt stops new detail calls and finalizes with completed work.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Warn().Str("signal", sig.String()).Msg("Received signal")
		extractor.Interrupt()
	}()

	report, err := extractor.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Extraction run failed")
		os.Exit(1)
	}

	logger.Info().
		Int64("end_cursor", report.EndCursor).
		Int("api_calls", report.APICalls).
		Int("valid_count", report.ValidCount).
		Msg("Extraction complete")
}

// buildCache selects the configured response cache store.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if !cfg.CacheEnabled {
		return nil, nil
	}

	switch cfg.CacheStore {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		return cache.NewRedisStore(redisClient), nil
	default:
		return cache.NewFSStore(cfg.CacheDir)
	}
}

// buildCursorStore selects the configured cursor backend.
func buildCursorStore(ctx context.Context, cfg *config.Config) (cursor.Store, error) {
	switch cfg.CursorBackend {
	case cursor.BackendEnv:
		return cursor.NewEnvStore(cfg.CursorEnvVar)
	case cursor.BackendS3:
		return cursor.NewS3Store(ctx, cfg.CursorBucket, cfg.CursorKey)
	case cursor.BackendDynamoDB:
		return cursor.NewDynamoStore(ctx, cfg.CursorTable, cfg.Pipeline)
	default:
		return cursor.NewFileStore(cfg.CursorFile)
	}
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
