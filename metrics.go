package stringdict

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fraugster/stringdict/format"
)

// Metrics are the prometheus collectors updated by writers and readers. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	unitsTotal          *prometheus.CounterVec
	dictionaryFallbacks prometheus.Counter
	dictionaryEntries   prometheus.Histogram
	stripesWritten      prometheus.Counter
	streamBytesWritten  *prometheus.CounterVec
	decodedBytes        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// that are already registered are reused, so several writers may share one
// registry. reg may be nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		unitsTotal: registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stringdict",
			Name:      "units_total",
			Help:      "Number of column units written, by chosen encoding.",
		}, []string{"encoding"})),
		dictionaryFallbacks: registerOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stringdict",
			Name:      "dictionary_fallbacks_total",
			Help:      "Number of units forced to direct encoding because the candidate dictionary grew too large.",
		})),
		dictionaryEntries: registerOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stringdict",
			Name:      "dictionary_entries",
			Help:      "Number of entries of the dictionaries written.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		})),
		stripesWritten: registerOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stringdict",
			Name:      "stripes_written_total",
			Help:      "Number of stripes written.",
		})),
		streamBytesWritten: registerOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stringdict",
			Name:      "stream_bytes_written_total",
			Help:      "Number of stored stream bytes written, by stream kind.",
		}, []string{"kind"})),
		decodedBytes: registerOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stringdict",
			Name:      "decoded_bytes_total",
			Help:      "Number of bytes materialized from dictionaries.",
		})),
	}
}

func registerOrGet[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(T)
		}
		panic(err)
	}
	return c
}

func (m *Metrics) unitWritten(enc format.ColumnEncoding, entries int) {
	if m == nil {
		return
	}
	m.unitsTotal.WithLabelValues(enc.String()).Inc()
	if enc == format.ColumnEncoding_DICTIONARY {
		m.dictionaryEntries.Observe(float64(entries))
	}
}

func (m *Metrics) dictionaryFallback() {
	if m == nil {
		return
	}
	m.dictionaryFallbacks.Inc()
}

func (m *Metrics) stripeWritten() {
	if m == nil {
		return
	}
	m.stripesWritten.Inc()
}

func (m *Metrics) streamWritten(kind format.StreamKind, n int) {
	if m == nil {
		return
	}
	m.streamBytesWritten.WithLabelValues(kind.String()).Add(float64(n))
}

func (m *Metrics) decoded(n int) {
	if m == nil {
		return
	}
	m.decodedBytes.Add(float64(n))
}
