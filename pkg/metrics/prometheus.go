package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	logger *slog.Logger

	cyclesTotal     *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	rejectionsTotal *prometheus.CounterVec
	workerFailures  *prometheus.CounterVec

	retriesScheduled prometheus.Counter
	retriesExhausted prometheus.Counter
	retriesPending   prometheus.Gauge
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PrometheusSink{logger: logger.With("module", "metrics")}
	s.initCycleMetrics(reg)
	s.initRetryMetrics(reg)
	return s
}

func (s *PrometheusSink) initCycleMetrics(reg prometheus.Registerer) {
	s.cyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "operion_triggered_cycles_total",
		Help: "Total number of finished trigger cycles by outcome.",
	}, []string{"channel", "outcome"})
	s.cycleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "operion_triggered_cycle_duration_seconds",
		Help:    "Duration of a trigger cycle from startup to teardown in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}, []string{"channel"})
	s.rejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "operion_triggered_rejected_triggers_total",
		Help: "Total number of triggers rejected because a cycle was already running.",
	}, []string{"channel"})
	s.workerFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "operion_triggered_worker_failures_total",
		Help: "Total number of workflow workers that failed to start or poll.",
	}, []string{"channel", "workflow"})

	s.register(reg, s.cyclesTotal, "operion_triggered_cycles_total")
	s.register(reg, s.cycleDuration, "operion_triggered_cycle_duration_seconds")
	s.register(reg, s.rejectionsTotal, "operion_triggered_rejected_triggers_total")
	s.register(reg, s.workerFailures, "operion_triggered_worker_failures_total")
}

func (s *PrometheusSink) initRetryMetrics(reg prometheus.Registerer) {
	s.retriesScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "operion_triggered_retries_scheduled_total",
		Help: "Total number of message retries scheduled by the retry handler.",
	})
	s.retriesExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "operion_triggered_retries_exhausted_total",
		Help: "Total number of messages that exceeded the retry limit.",
	})
	s.retriesPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "operion_triggered_retries_pending",
		Help: "Number of messages waiting for or undergoing a retry.",
	})

	s.register(reg, s.retriesScheduled, "operion_triggered_retries_scheduled_total")
	s.register(reg, s.retriesExhausted, "operion_triggered_retries_exhausted_total")
	s.register(reg, s.retriesPending, "operion_triggered_retries_pending")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("failed to register metric", "metric", name, "error", err)
	}
}

// Cycle metrics implementation

// CycleStarted is a no-op for Prometheus; finished cycles carry the counters.
func (s *PrometheusSink) CycleStarted(channelID string) {}

func (s *PrometheusSink) CycleFinished(channelID, outcome string, duration time.Duration) {
	s.cyclesTotal.WithLabelValues(channelID, outcome).Inc()
	s.cycleDuration.WithLabelValues(channelID).Observe(duration.Seconds())
}

func (s *PrometheusSink) TriggerRejected(channelID string) {
	s.rejectionsTotal.WithLabelValues(channelID).Inc()
}

func (s *PrometheusSink) WorkerFailed(channelID, workflowID string) {
	s.workerFailures.WithLabelValues(channelID, workflowID).Inc()
}

// Retry metrics implementation

func (s *PrometheusSink) RetryScheduled() {
	s.retriesScheduled.Inc()
}

func (s *PrometheusSink) RetryExhausted() {
	s.retriesExhausted.Inc()
}

func (s *PrometheusSink) RetriesPending(count int) {
	s.retriesPending.Set(float64(count))
}
