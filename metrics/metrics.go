package metrics

import "github.com/prometheus/client_golang/prometheus"

type Observer interface {
	Observe(val float64, labels ...string)

	// for now we will tightly couple to the prometheus collector type
	// the go otel metrics sdk also has a prometheus adapter that implements this interface.
	prometheus.Collector
}

type Metrics struct {
	EventCount      Observer
	CommandCount    Observer
	DenialCount     Observer
	BadWordCount    Observer
	CorrectionCount Observer
	ReconnectCount  Observer
	ActionLatency   Observer
}

func (m Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventCount,
		m.CommandCount,
		m.DenialCount,
		m.BadWordCount,
		m.CorrectionCount,
		m.ReconnectCount,
		m.ActionLatency,
	}
}
