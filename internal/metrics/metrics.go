// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/ipsniff/internal/core"
)

const namespace = "ipsniff"

// Recorder holds the capture metrics. A nil *Recorder discards every update.
type Recorder struct {
	packets   *prometheus.CounterVec
	malformed prometheus.Counter
	reports   prometheus.Counter
	drops     prometheus.Counter
	running   prometheus.Gauge
}

// NewRecorder registers the capture metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		// packets_total counts captured datagrams by protocol category
		packets: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packets_total",
				Help:      "Total number of captured IPv4 datagrams",
			},
			[]string{"category"},
		),
		malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_total",
			Help:      "Datagrams whose IPv4 header could not be decoded",
		}),
		reports: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Reports handed to the sink",
		}),
		drops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_drops_total",
			Help:      "Reports lost to sink write failures",
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_running",
			Help:      "Whether the capture loop is running (1) or stopped (0)",
		}),
	}
}

func (r *Recorder) Packet(c core.Category) {
	if r == nil {
		return
	}
	r.packets.WithLabelValues(c.String()).Inc()
}

func (r *Recorder) Malformed() {
	if r == nil {
		return
	}
	r.malformed.Inc()
}

func (r *Recorder) Reported() {
	if r == nil {
		return
	}
	r.reports.Inc()
}

func (r *Recorder) Dropped() {
	if r == nil {
		return
	}
	r.drops.Inc()
}

func (r *Recorder) SetRunning(running bool) {
	if r == nil {
		return
	}
	if running {
		r.running.Set(1)
	} else {
		r.running.Set(0)
	}
}
