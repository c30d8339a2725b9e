package refcounts

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsRegister sync.Once

	blocksWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vdo",
			Subsystem: "refcounts",
			Name:      "blocks_written_total",
			Help:      "Number of reference blocks successfully written to media",
		},
		[]string{"slab"})
	blocksReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vdo",
			Subsystem: "refcounts",
			Name:      "blocks_read_total",
			Help:      "Number of reference blocks successfully read from media",
		},
		[]string{"slab"})
	provisionalReferencesAssignedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vdo",
			Subsystem: "refcounts",
			Name:      "provisional_references_assigned_total",
			Help:      "Number of counters that transitioned to the provisional reference sentinel",
		},
		[]string{"slab"})
	tornWritesDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vdo",
			Subsystem: "refcounts",
			Name:      "torn_writes_detected_total",
			Help:      "Number of reference blocks found with divergent per-sector commit points at load time",
		},
		[]string{"slab"})
	freeBlocksGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vdo",
			Subsystem: "refcounts",
			Name:      "free_blocks",
			Help:      "Number of unreferenced physical blocks currently tracked by a slab's reference-count engine",
		},
		[]string{"slab"})
)

// metricsVec binds the package's Prometheus vectors to one slab number,
// following the per-instance labeled-vector idiom of
// hashing_key_location_map.go and local_blob_access.go.
type metricsVec struct {
	blocksWritten                 prometheus.Counter
	blocksRead                    prometheus.Counter
	provisionalReferencesAssigned prometheus.Counter
	tornWritesDetected             prometheus.Counter
	freeBlocks                     prometheus.Gauge
}

func newMetricsVec() *metricsVec {
	metricsRegister.Do(func() {
		prometheus.MustRegister(blocksWrittenTotal)
		prometheus.MustRegister(blocksReadTotal)
		prometheus.MustRegister(provisionalReferencesAssignedTotal)
		prometheus.MustRegister(tornWritesDetectedTotal)
		prometheus.MustRegister(freeBlocksGauge)
	})
	return &metricsVec{}
}

// bind attaches this metricsVec's vector entries to slabNumber. Called
// once a RefCounts knows its slab.Info, since the constructor otherwise
// has no label value yet.
func (m *metricsVec) bind(slabNumber uint32) {
	label := strconv.FormatUint(uint64(slabNumber), 10)
	m.blocksWritten = blocksWrittenTotal.WithLabelValues(label)
	m.blocksRead = blocksReadTotal.WithLabelValues(label)
	m.provisionalReferencesAssigned = provisionalReferencesAssignedTotal.WithLabelValues(label)
	m.tornWritesDetected = tornWritesDetectedTotal.WithLabelValues(label)
	m.freeBlocks = freeBlocksGauge.WithLabelValues(label)
}
