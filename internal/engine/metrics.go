package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/portmatch/internal/ir"
)

const metricsNamespace = "portmatch"

// Metrics counts oracle activity.
type Metrics struct {
	TransitionsRecorded prometheus.Counter
	Verdicts            *prometheus.CounterVec
	Errors              *prometheus.CounterVec
	VocabularyGaps      *prometheus.CounterVec
	SessionsActive      prometheus.Gauge
}

// NewMetrics creates oracle metrics registered with reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransitionsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "oracle",
			Name:      "transitions_recorded_total",
			Help:      "Transitions appended to a session",
		}),
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "oracle",
			Name:      "verdicts_total",
			Help:      "Verdicts submitted by kind",
		}, []string{"verdict"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "oracle",
			Name:      "errors_total",
			Help:      "Rejected oracle operations by error code",
		}, []string{"code"}),
		VocabularyGaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "oracle",
			Name:      "vocabulary_gaps_total",
			Help:      "Identifiers seen with no vocabulary entry, by kind",
		}, []string{"kind"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "oracle",
			Name:      "sessions_active",
			Help:      "Sessions currently accepting transitions",
		}),
	}
}

func (m *Metrics) observeError(err error) {
	if code := ir.CodeOf(err); code != "" {
		m.Errors.WithLabelValues(string(code)).Inc()
	}
}
