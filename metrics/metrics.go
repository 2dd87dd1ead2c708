package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// SubmissionsTotal counts submissions accepted past authentication.
	SubmissionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pothole",
		Subsystem: "ingest",
		Name:      "submissions_total",
		Help:      "Total number of authenticated analyze submissions.",
	})

	// ImagesProcessedTotal counts per-image pipeline outcomes.
	ImagesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pothole",
		Subsystem: "ingest",
		Name:      "images_processed_total",
		Help:      "Total number of images processed by the ingestion pipeline, labeled by outcome.",
	}, []string{"result"})

	// AnnotationDurationSeconds is the time spent in the assessment model call.
	AnnotationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pothole",
		Subsystem: "ingest",
		Name:      "annotation_duration_seconds",
		Help:      "Time spent waiting for the damage-assessment model per image.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	})

	// TrackingIdsIssuedTotal counts successfully allocated tracking ids.
	TrackingIdsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pothole",
		Subsystem: "ingest",
		Name:      "tracking_ids_issued_total",
		Help:      "Total number of tracking ids issued by the allocator.",
	})
)

// Outcome label values for ImagesProcessedTotal.
const (
	ResultDone             = "done"
	ResultDeduped          = "deduped"
	ResultStorageError     = "storage_error"
	ResultAnnotationError  = "annotation_error"
	ResultAllocationError  = "allocation_error"
	ResultPersistenceError = "persistence_error"
)

// Register registers ingest metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			SubmissionsTotal,
			ImagesProcessedTotal,
			AnnotationDurationSeconds,
			TrackingIdsIssuedTotal,
		)
	})
}
