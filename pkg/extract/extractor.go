// Package extract implements the two-phase extraction run: one list call for
// a page of candidate identifiers after the cursor, then ordered detail
// fetches under the run's call budget, then finalization into one artifact
// and a cursor advance.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ghcatalog/extractor/pkg/cursor"
	"github.com/ghcatalog/extractor/pkg/github"
	"github.com/ghcatalog/extractor/pkg/logging"
	"github.com/ghcatalog/extractor/pkg/quota"
	"github.com/ghcatalog/extractor/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for extraction runs.
var (
	ghxRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghx_runs_total",
		Help: "Total extraction runs by result",
	}, []string{"result"})

	ghxRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghx_records_processed_total",
		Help: "Total detail records processed by outcome",
	}, []string{"outcome"})

	ghxRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghx_run_duration_seconds",
		Help:    "Extraction run duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	ghxCursorPosition = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghx_cursor_position",
		Help: "Cursor saved at the end of the last run",
	})
)

// Client fetches list pages and detail records. *github.Client satisfies it;
// tests substitute a fake.
type Client interface {
	ListPage(ctx context.Context, since int64, perPage int) (*github.Result, error)
	Detail(ctx context.Context, owner, name string, repoID int64) (*github.Result, error)
}

// Sink persists the validated batch plus run metadata as one immutable
// object and returns its location.
type Sink interface {
	Upload(ctx context.Context, valid []record.Flattened, report *Report) (string, error)
}

// Config holds the extractor configuration.
type Config struct {
	// Pipeline names the extraction for cursors, artifact keys, and logs.
	Pipeline string

	// Client issues the remote calls (required).
	Client Client

	// Budget is the run-scoped call budget shared with the client (required).
	Budget *quota.Budget

	// Cursor is the durable resume pointer (required).
	Cursor cursor.Store

	// Sink receives the finalized artifact; nil skips upload.
	Sink Sink

	// PageSize is the list-phase batch size.
	PageSize int

	// RequiredFields gates record validity after flattening.
	RequiredFields []string

	// SkipUpload finalizes without invoking the sink.
	SkipUpload bool
}

// Extractor drives one extraction run at a time. It is owned by a single
// goroutine; only Interrupt may be called from another.
type Extractor struct {
	config      Config
	state       State
	interrupted atomic.Bool
	logger      zerolog.Logger
}

// New creates an extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.Budget == nil {
		return nil, fmt.Errorf("call budget is required")
	}
	if cfg.Cursor == nil {
		return nil, fmt.Errorf("cursor store is required")
	}
	if cfg.Pipeline == "" {
		cfg.Pipeline = "github-repos"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &Extractor{
		config: cfg,
		state:  StateIdle,
		logger: logging.NewLogger("extractor"),
	}, nil
}

// State returns the current run state.
func (e *Extractor) State() State {
	return e.state
}

// Interrupt requests a graceful early exit: no new detail calls are issued
// and the run proceeds directly to finalization with whatever completed.
// Safe to call from a signal handler goroutine.
func (e *Extractor) Interrupt() {
	if e.interrupted.CompareAndSwap(false, true) {
		e.logger.Warn().Msg("Interrupt requested - finalizing with completed work")
	}
}

// Run executes one extraction run.
//
// The cursor advances only through the contiguous prefix of candidates that
// reached a terminal outcome (fetched, not-found, or retry-exhausted). A
// candidate skipped by quota exhaustion or interruption stops the advance so
// the next run re-lists it.
//
// A failing sink does not stop the cursor advance: records fetched in a run
// whose upload failed are lost from future artifacts. The returned report is
// non-nil whenever fetching started, even when err is non-nil.
func (e *Extractor) Run(ctx context.Context) (*Report, error) {
	startedAt := time.Now().UTC()
	report := &Report{
		Pipeline:  e.config.Pipeline,
		StartedAt: startedAt,
	}

	// A broken cursor backend means the run cannot safely claim progress,
	// so it aborts before spending any calls.
	since, err := e.config.Cursor.Load(ctx)
	if err != nil {
		ghxRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("load cursor: %w", err)
	}
	report.StartCursor = since
	report.EndCursor = since

	e.logger.Info().
		Str("pipeline", e.config.Pipeline).
		Int64("since", since).
		Int("page_size", e.config.PageSize).
		Int("budget_remaining", e.config.Budget.Remaining()).
		Msg("Starting extraction run")

	entries, err := e.listCandidates(ctx, since)
	if err != nil {
		if errors.Is(err, github.ErrQuotaExhausted) {
			// Run-ending, not an operator error.
			e.logger.Warn().Msg("Quota exhausted before list phase - nothing to do this run")
			return e.finalize(ctx, report, nil)
		}
		ghxRunsTotal.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("list phase: %w", err)
	}

	flattened := e.fetchDetails(ctx, entries, report)

	return e.finalize(ctx, report, flattened)
}

// listCandidates runs the list phase and returns candidates in ascending
// identifier order.
func (e *Extractor) listCandidates(ctx context.Context, since int64) ([]github.ListEntry, error) {
	e.state = StateListFetching

	result, err := e.config.Client.ListPage(ctx, since, e.config.PageSize)
	if err != nil {
		return nil, err
	}

	entries, err := github.ParseListPage(result.Body)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	e.logger.Info().
		Int("candidates", len(entries)).
		Bool("cache_hit", result.FromCache).
		Msg("List phase complete")
	return entries, nil
}

// fetchDetails runs the detail phase over the ordered candidates. The
// report's end cursor tracks the last candidate with a terminal outcome.
func (e *Extractor) fetchDetails(ctx context.Context, entries []github.ListEntry, report *Report) []record.Flattened {
	e.state = StateDetailFetching

	var flattened []record.Flattened
	for _, entry := range entries {
		if e.interrupted.Load() || ctx.Err() != nil {
			e.state = StateInterrupted
			report.Interrupted = true
			e.logger.Warn().
				Int64("repo_id", entry.ID).
				Msg("Stopping detail phase before candidate")
			break
		}

		result, err := e.config.Client.Detail(ctx, entry.Owner.Login, entry.Name, entry.ID)
		switch {
		case err == nil:
			detail, perr := record.Parse(result.Body)
			if perr != nil {
				// Fetched but undecodable. Terminal, counted as failed.
				e.logger.Error().Err(perr).Int64("repo_id", entry.ID).Msg("Undecodable detail record")
				report.FailedCount++
				ghxRecordsTotal.WithLabelValues("failed").Inc()
				report.EndCursor = entry.ID
				continue
			}
			flattened = append(flattened, record.Flatten(detail))
			if result.FromCache {
				report.CacheHits++
			} else {
				report.FetchedCount++
			}
			report.EndCursor = entry.ID

		case errors.Is(err, github.ErrQuotaExhausted):
			// Remaining candidates are not terminal; they are re-listed
			// next run because the cursor stops before them.
			e.logger.Warn().
				Int64("repo_id", entry.ID).
				Int("processed", report.FetchedCount+report.CacheHits+report.FailedCount).
				Msg("Call budget exhausted - stopping detail phase")
			return flattened

		case errors.Is(err, github.ErrNotFound):
			e.logger.Warn().
				Int64("repo_id", entry.ID).
				Str("full_name", entry.FullName).
				Msg("Repository gone upstream")
			report.FailedCount++
			ghxRecordsTotal.WithLabelValues("failed").Inc()
			report.EndCursor = entry.ID

		case errors.Is(err, github.ErrContextCancelled),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			e.state = StateInterrupted
			report.Interrupted = true
			e.logger.Warn().Int64("repo_id", entry.ID).Msg("Context cancelled during detail phase")
			return flattened

		default:
			// Retry-exhausted or a non-retriable client error. Terminal,
			// counted as failed, does not block the cursor.
			e.logger.Error().
				Err(err).
				Int64("repo_id", entry.ID).
				Str("full_name", entry.FullName).
				Msg("Detail fetch failed")
			report.FailedCount++
			ghxRecordsTotal.WithLabelValues("failed").Inc()
			report.EndCursor = entry.ID
		}
	}

	return flattened
}

// finalize validates the batch, uploads the artifact, and advances the
// cursor. Upload and cursor advance are separate effects with no atomic
// coupling.
func (e *Extractor) finalize(ctx context.Context, report *Report, flattened []record.Flattened) (*Report, error) {
	e.state = StateFinalizing

	valid, invalid := record.PartitionRecords(flattened, e.config.RequiredFields, e.logger)
	report.ValidCount = len(valid)
	report.InvalidCount = len(invalid)
	report.APICalls = e.config.Budget.Used()
	report.Statistics = record.ComputeStatistics(valid)
	report.DurationSeconds = time.Since(report.StartedAt).Seconds()

	ghxRecordsTotal.WithLabelValues("valid").Add(float64(report.ValidCount))
	ghxRecordsTotal.WithLabelValues("invalid").Add(float64(report.InvalidCount))

	var sinkErr error
	switch {
	case e.config.SkipUpload || e.config.Sink == nil:
		e.logger.Info().Msg("Upload skipped")
	case len(valid) == 0:
		e.logger.Info().Msg("No valid records - skipping upload")
	default:
		location, err := e.config.Sink.Upload(ctx, valid, report)
		if err != nil {
			// The cursor still advances for everything fetched this run;
			// these records will not reappear in a future artifact.
			sinkErr = fmt.Errorf("artifact upload: %w", err)
			e.logger.Error().Err(err).Msg("Artifact upload failed")
		} else {
			report.ArtifactLocation = location
			e.logger.Info().Str("location", location).Msg("Artifact uploaded")
		}
	}

	if report.EndCursor > report.StartCursor {
		if err := e.config.Cursor.Save(ctx, report.EndCursor); err != nil {
			ghxRunsTotal.WithLabelValues("failed").Inc()
			return report, fmt.Errorf("save cursor: %w", err)
		}
		ghxCursorPosition.Set(float64(report.EndCursor))
	}

	e.state = StateDone
	ghxRunDuration.Observe(report.DurationSeconds)
	switch {
	case sinkErr != nil:
		ghxRunsTotal.WithLabelValues("failed").Inc()
	case report.Interrupted:
		ghxRunsTotal.WithLabelValues("interrupted").Inc()
	default:
		ghxRunsTotal.WithLabelValues("completed").Inc()
	}

	e.logger.Info().
		Int64("start_cursor", report.StartCursor).
		Int64("end_cursor", report.EndCursor).
		Int("api_calls", report.APICalls).
		Int("cache_hits", report.CacheHits).
		Int("valid_count", report.ValidCount).
		Int("invalid_count", report.InvalidCount).
		Int("failed_count", report.FailedCount).
		Bool("interrupted", report.Interrupted).
		Msg("Extraction run finished")

	return report, sinkErr
}
