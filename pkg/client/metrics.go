package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gateway"

// Frame outcomes recorded per dispatch tag.
const (
	outcomeHandled = "handled"
	outcomeUnknown = "unknown"
	outcomeFault   = "fault"
	outcomeInvalid = "invalid"
)

// metrics holds dispatch collectors. Collectors always exist; they are only
// registered when a registerer is configured.
type metrics struct {
	frames         *prometheus.CounterVec
	dispatch       *prometheus.HistogramVec
	listenerFaults *prometheus.CounterVec
	evictions      *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Dispatch frames by tag and outcome.",
		}, []string{"tag", "outcome"}),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent routing one dispatch frame, listeners included.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"tag"}),
		listenerFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "listener_faults_total",
			Help:      "Listener errors and panics by event.",
		}, []string{"event"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "store_evictions_total",
			Help:      "Capacity evictions by store collection.",
		}, []string{"collection"}),
	}
	if registerer == nil {
		return m, nil
	}

	var registerErrs []error
	for _, collector := range []prometheus.Collector{m.frames, m.dispatch, m.listenerFaults, m.evictions} {
		if err := registerer.Register(collector); err != nil {
			registerErrs = append(registerErrs, err)
		}
	}
	if len(registerErrs) > 0 {
		return nil, fmt.Errorf("register gateway metrics: %w", errors.Join(registerErrs...))
	}

	return m, nil
}

func (m *metrics) observeFrame(tag string, outcome string, elapsed time.Duration) {
	m.frames.WithLabelValues(tag, outcome).Inc()
	if outcome != outcomeInvalid {
		m.dispatch.WithLabelValues(tag).Observe(elapsed.Seconds())
	}
}

func (m *metrics) observeListenerFault(event string) {
	m.listenerFaults.WithLabelValues(event).Inc()
}

func (m *metrics) observeEviction(collection string, _ string) {
	m.evictions.WithLabelValues(collection).Inc()
}
