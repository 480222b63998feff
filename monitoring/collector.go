package monitoring

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector exports a Monitor's combined usage tree as Prometheus counters,
// one series per chain of nested models.
type Collector struct {
	monitor     *Monitor
	invocations *prometheus.Desc
	seconds     *prometheus.Desc
}

// NewCollector returns a collector for m.
func NewCollector(m *Monitor) *Collector {
	labels := []string{"model", "chain"}
	return &Collector{
		monitor: m,
		invocations: prometheus.NewDesc(
			"slice_model_invocations_total",
			"Number of models built, per chain of enclosing models.",
			labels, nil,
		),
		seconds: prometheus.NewDesc(
			"slice_model_time_seconds_total",
			"Time spent building models, per chain of enclosing models.",
			labels, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.invocations
	ch <- c.seconds
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.collect(ch, c.monitor.Combined(), nil)
}

func (c *Collector) collect(ch chan<- prometheus.Metric, reports []Report, chain []string) {
	for _, r := range reports {
		path := append(chain[:len(chain):len(chain)], r.Model)
		label := strings.Join(path, " > ")
		ch <- prometheus.MustNewConstMetric(c.invocations, prometheus.CounterValue, float64(r.Count), r.Model, label)
		ch <- prometheus.MustNewConstMetric(c.seconds, prometheus.CounterValue, r.TotalTime/1000, r.Model, label)
		c.collect(ch, r.SubModels, path)
	}
}
