package cocoyolo

// Run counters.

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the outcome of a conversion run. The counters live in their own registry so that
// they can be written to a node exporter textfile once the run is over.
type Metrics struct {
	Registry *prometheus.Registry

	images             *prometheus.CounterVec
	annotationsWritten *prometheus.CounterVec
	annotationsDropped *prometheus.CounterVec
	splitsSkipped      prometheus.Counter
}

// NewMetrics creates and registers the run counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cocoyolo",
			Name:      "images_total",
			Help:      "Images processed, by split and materialization status.",
		}, []string{"split", "status"}),
		annotationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cocoyolo",
			Name:      "annotations_written_total",
			Help:      "Label lines written, by split.",
		}, []string{"split"}),
		annotationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cocoyolo",
			Name:      "annotations_dropped_total",
			Help:      "Annotations removed by the category filter or for unknown categories, by split.",
		}, []string{"split"}),
		splitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cocoyolo",
			Name:      "splits_skipped_total",
			Help:      "Splits skipped because their annotations could not be loaded.",
		}),
	}

	m.Registry.MustRegister(m.images, m.annotationsWritten, m.annotationsDropped, m.splitsSkipped)
	return m
}

func (m *Metrics) image(split Split, status MaterializeStatus) {
	m.images.WithLabelValues(string(split), status.String()).Inc()
}

func (m *Metrics) written(split Split, n int) {
	m.annotationsWritten.WithLabelValues(string(split)).Add(float64(n))
}

func (m *Metrics) dropped(split Split, n int) {
	m.annotationsDropped.WithLabelValues(string(split)).Add(float64(n))
}

func (m *Metrics) skipped() {
	m.splitsSkipped.Inc()
}

// WriteTextfile writes the current counter values to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
