package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus counters the syncer updates. A nil *Metrics
// disables instrumentation.
type Metrics struct {
	Chunks       *prometheus.CounterVec
	Mismatches   *prometheus.CounterVec
	RowsUpserted *prometheus.CounterVec
	RowsDeleted  *prometheus.CounterVec
}

// NewMetrics registers the syncer counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbsync_chunks_total",
			Help: "Chunks fingerprinted, by table.",
		}, []string{"table"}),
		Mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbsync_chunk_mismatches_total",
			Help: "Chunks whose fingerprints disagreed, by table.",
		}, []string{"table"}),
		RowsUpserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbsync_rows_upserted_total",
			Help: "Rows inserted or updated on the target, by table.",
		}, []string{"table"}),
		RowsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbsync_rows_deleted_total",
			Help: "Stale rows removed from the target, by table.",
		}, []string{"table"}),
	}
}

func (m *Metrics) addChunk(tbl string) {
	if m != nil {
		m.Chunks.WithLabelValues(tbl).Inc()
	}
}

func (m *Metrics) addMismatch(tbl string) {
	if m != nil {
		m.Mismatches.WithLabelValues(tbl).Inc()
	}
}

func (m *Metrics) addUpserted(tbl string, n int64) {
	if m != nil && n > 0 {
		m.RowsUpserted.WithLabelValues(tbl).Add(float64(n))
	}
}

func (m *Metrics) addDeleted(tbl string, n int64) {
	if m != nil && n > 0 {
		m.RowsDeleted.WithLabelValues(tbl).Add(float64(n))
	}
}
