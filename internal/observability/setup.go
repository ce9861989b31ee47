package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

const namespace = "warden"

var (
	// Registry holds every warden collector; it is what /metrics serves.
	Registry = prometheus.NewRegistry()

	violationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of detected violations",
		},
		[]string{"kind"},
	)

	enforcementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enforcements_total",
			Help:      "Punishment attempts by action and result",
		},
		[]string{"action", "result"},
	)

	persistenceFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strike_persistence_failures_total",
			Help:      "Violations dropped because the strike could not be recorded",
		},
	)

	lookupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "member_lookup_failures_total",
			Help:      "Failed chat member status lookups (treated as non-admin)",
		},
	)

	trackedWindows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flood_windows",
			Help:      "Number of (chat, user) flood windows held in memory",
		},
	)

	updateProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_processing_duration_seconds",
			Help:      "Time spent processing updates",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		violationsTotal,
		enforcementsTotal,
		persistenceFailuresTotal,
		lookupFailuresTotal,
		trackedWindows,
		updateProcessingDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// InitTracing installs the global tracer provider and returns its shutdown func.
func InitTracing(serviceName string) func(ctx context.Context) error {
	tp := trace.NewTracerProvider(
		trace.WithResource(resource.NewSchemaless(semconv.ServiceName(serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// NewAuditLogger returns the JSON logger used for the enforcement audit trail.
func NewAuditLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.Named("audit"), nil
}

// RecordViolation counts a detected violation by kind.
func RecordViolation(kind string) {
	violationsTotal.WithLabelValues(kind).Inc()
}

// RecordEnforcement counts a punishment attempt.
func RecordEnforcement(action, result string) {
	enforcementsTotal.WithLabelValues(action, result).Inc()
}

func RecordPersistenceFailure() {
	persistenceFailuresTotal.Inc()
}

func RecordLookupFailure() {
	lookupFailuresTotal.Inc()
}

func SetTrackedWindows(n int) {
	trackedWindows.Set(float64(n))
}

// StartUpdateProcessing returns a function to record update processing duration.
func StartUpdateProcessing() func(status string) {
	timer := prometheus.NewTimer(nil)
	return func(status string) {
		updateProcessingDuration.WithLabelValues(status).Observe(timer.ObserveDuration().Seconds())
	}
}
