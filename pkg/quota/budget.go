package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	ghxQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghx_quota_calls_remaining",
		Help: "Remote-reported calls remaining in the current rate limit window",
	})

	ghxBudgetRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghx_budget_calls_remaining",
		Help: "Run-local call budget remaining",
	})

	ghxBudgetExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghx_budget_exhausted_total",
		Help: "Total number of runs that hit budget or quota exhaustion",
	})
)

// Budget is the run-scoped call budget counter. It combines a configured
// per-run ceiling with the remote-reported quota: once either is spent the
// run must stop issuing calls. Exhaustion is fatal for the run, not the
// process.
//
// Budget is not safe for concurrent use; a run owns exactly one Budget and
// issues calls sequentially.
type Budget struct {
	ceiling         int
	used            int
	remoteExhausted bool
	exhaustedSignal bool
	logger          zerolog.Logger
}

// NewBudget creates a budget with the given per-run ceiling.
func NewBudget(ceiling int, logger zerolog.Logger) *Budget {
	ghxBudgetRemaining.Set(float64(ceiling))
	return &Budget{
		ceiling: ceiling,
		logger:  logger,
	}
}

// Allow reports whether another remote call may be issued.
func (b *Budget) Allow() bool {
	if b.remoteExhausted {
		b.signalExhausted("remote quota exhausted")
		return false
	}
	if b.used >= b.ceiling {
		b.signalExhausted("per-run ceiling reached")
		return false
	}
	return true
}

// Spend records one issued remote call.
func (b *Budget) Spend() {
	b.used++
	ghxBudgetRemaining.Set(float64(b.Remaining()))
}

// Observe folds a remote quota snapshot into the budget. When the remote
// window is spent, no further calls are issued this run.
func (b *Budget) Observe(state *State) {
	ghxQuotaRemaining.Set(float64(state.Remaining))

	if state.Exhausted() {
		b.remoteExhausted = true
		b.logger.Warn().
			Int("calls_remaining", state.Remaining).
			Dur("reset_in", state.TimeUntilReset()).
			Msg("Remote quota exhausted - no further calls this run")
		return
	}

	if state.Low() {
		b.logger.Warn().
			Int("calls_remaining", state.Remaining).
			Int("limit", state.Limit).
			Msg("Remote quota running low")
	}
}

// Used returns the number of calls spent so far.
func (b *Budget) Used() int {
	return b.used
}

// Remaining returns the calls left under the per-run ceiling.
func (b *Budget) Remaining() int {
	remaining := b.ceiling - b.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Exhausted returns true once Allow has refused a call.
func (b *Budget) Exhausted() bool {
	return b.exhaustedSignal
}

func (b *Budget) signalExhausted(reason string) {
	if b.exhaustedSignal {
		return
	}
	b.exhaustedSignal = true
	ghxBudgetExhaustedTotal.Inc()
	b.logger.Info().
		Str("reason", reason).
		Int("calls_used", b.used).
		Int("ceiling", b.ceiling).
		Msg("Call budget exhausted")
}
