package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Navigation outcomes.
const (
	OutcomeUntracked  = "untracked"
	OutcomeSuppressed = "suppressed"
	OutcomeEmitted    = "emitted"
	OutcomeFailed     = "failed"
)

// Metrics holds the agent's Prometheus collectors.
type Metrics struct {
	Navigations   *prometheus.CounterVec
	DedupRecords  prometheus.Gauge
	CookieChanges *prometheus.CounterVec
}

// New constructs the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what most tests want.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visittrace",
			Name:      "navigations_total",
			Help:      "Tab navigations handled, partitioned by outcome.",
		}, []string{"outcome"}),
		DedupRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visittrace",
			Name:      "dedup_records",
			Help:      "Number of domains currently held in the visit dedup cache.",
		}),
		CookieChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visittrace",
			Name:      "cookie_changes_total",
			Help:      "Cookie change notifications applied to the mirror, partitioned by kind.",
		}, []string{"kind"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Navigations, m.DedupRecords, m.CookieChanges} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveNavigation counts one handled navigation. Safe on a nil receiver.
func (m *Metrics) ObserveNavigation(outcome string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetDedupRecords(n int) {
	if m == nil {
		return
	}
	m.DedupRecords.Set(float64(n))
}

func (m *Metrics) ObserveCookieChange(removed bool) {
	if m == nil {
		return
	}
	kind := "set"
	if removed {
		kind = "removed"
	}
	m.CookieChanges.WithLabelValues(kind).Inc()
}
