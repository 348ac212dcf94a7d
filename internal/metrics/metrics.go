package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all iFeis metrics
const namespace = "ifeis"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthCheckStatus tracks individual readiness check results
// Values: 0 = fail, 1 = pass
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Readiness check status (0=fail, 1=pass)",
	},
	[]string{"check"},
)

// Scheduling and results metrics

// StageEdits counts committed stage schedule changes by operation
var StageEdits = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_edits_total",
		Help:      "Total number of committed stage schedule edits",
	},
	[]string{"operation"}, // attach_event|detach_event|attach_placeholder|detach_placeholder|remove
)

// PlacementsCached counts placement caching runs that committed
var PlacementsCached = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "placements_cached_total",
		Help:      "Total number of events whose placements were recomputed and stored",
	},
)

// PlacementDuration tracks how long a placement caching run takes
var PlacementDuration = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "placement_duration_seconds",
		Help:      "Duration of placement calculation and storage in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
)

// Payment metrics

// PaymentsRecorded counts stored payments by medium
var PaymentsRecorded = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_recorded_total",
		Help:      "Total number of payments recorded",
	},
	[]string{"medium"}, // offline|cc
)

// PaymentAmount sums recorded payments in cents
var PaymentAmount = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_amount_cents_total",
		Help:      "Sum of recorded payment amounts in cents",
	},
	[]string{"medium"},
)

// PaymentFailures counts charges the payment gateway rejected
var PaymentFailures = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_failures_total",
		Help:      "Total number of failed payment attempts",
	},
	[]string{"medium"},
)

// EmailsSent counts delivered emails by template and result
var EmailsSent = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of email delivery attempts",
	},
	[]string{"template", "result"}, // result: success|error
)

// Init registers runtime collectors and sets version information
func Init(version, commit, buildDate string) {
	// Register default Go metrics (memory, goroutines, GC, etc.)
	Registry.MustRegister(collectors.NewGoCollector())

	// Register process metrics (CPU, memory, file descriptors)
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
