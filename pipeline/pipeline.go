package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pothole-ingest-pipeline/annotator"
	"pothole-ingest-pipeline/database"
	"pothole-ingest-pipeline/hasher"
	"pothole-ingest-pipeline/metrics"
	"pothole-ingest-pipeline/models"
	"pothole-ingest-pipeline/parser"

	"github.com/apex/log"
	"github.com/google/uuid"
)

// ReportStore is the fingerprint-keyed durable store. InsertReport must be
// atomic per fingerprint: when two submissions race on identical content,
// exactly one insert succeeds and the other gets database.ErrAlreadyExists.
type ReportStore interface {
	LookupReport(ctx context.Context, fingerprint string) (*models.Report, error)
	InsertReport(ctx context.Context, r *models.Report) error
}

// ObjectStore persists raw image bytes and returns an opaque locator.
type ObjectStore interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// IDAllocator issues unique tracking ids.
type IDAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

// Publisher forwards accepted reports to the downstream workflow. May be nil.
type Publisher interface {
	Publish(message interface{}) error
}

// Identity is the decoded identity of the submitting user, trusted as given.
type Identity struct {
	UserID string
	Email  string
}

// Pipeline orchestrates per-image ingestion: hash, dedupe check, raw byte
// storage, annotation, id allocation and persistence.
type Pipeline struct {
	store     ReportStore
	objects   ObjectStore
	allocator IDAllocator
	model     annotator.Client
	publisher Publisher
	now       func() time.Time
}

// New wires a pipeline from its collaborators. publisher may be nil; accepted
// reports are then simply not forwarded downstream.
func New(store ReportStore, objects ObjectStore, allocator IDAllocator, model annotator.Client, publisher Publisher) *Pipeline {
	return &Pipeline{
		store:     store,
		objects:   objects,
		allocator: allocator,
		model:     model,
		publisher: publisher,
		now:       time.Now,
	}
}

// ProcessSubmission runs the per-image pipeline for every image of a
// submission. Images are processed concurrently and independently: one image's
// failure never aborts its siblings. Results come back in input order, one
// tagged success/failure slot per image.
func (p *Pipeline) ProcessSubmission(ctx context.Context, identity Identity, latitude, longitude float64, images []models.SubmissionImage) []models.ImageResult {
	submissionID := uuid.NewString()
	logger := log.WithField("submission", submissionID).WithField("user", identity.UserID)
	logger.Infof("Processing submission with %d images", len(images))
	metrics.SubmissionsTotal.Inc()

	results := make([]models.ImageResult, len(images))
	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, err := p.processImage(ctx, logger, identity, latitude, longitude, images[i])
			if err != nil {
				logger.Errorf("Image %d failed: %v", i, err)
				results[i] = models.ImageResult{Error: err.Error()}
				return
			}
			results[i] = models.ImageResult{Report: report}
		}(i)
	}
	wg.Wait()

	return results
}

// processImage runs the state machine for one image:
// hash -> dedupe check -> store bytes -> annotate -> allocate id -> persist.
func (p *Pipeline) processImage(ctx context.Context, logger log.Interface, identity Identity, latitude, longitude float64, img models.SubmissionImage) (*models.Report, error) {
	fingerprint := hasher.Fingerprint(img.Data)
	logger = logger.WithField("fingerprint", fingerprint)

	// Dedupe check: identical content already ingested is returned as-is,
	// with only the deduped marker added.
	existing, err := p.store.LookupReport(ctx, fingerprint)
	if err == nil {
		logger.Infof("Dedupe hit, returning existing report %s", existing.TrackingID)
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultDeduped).Inc()
		return dedupedCopy(existing), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
		return nil, fmt.Errorf("%w: dedupe lookup: %v", ErrPersistenceFailed, err)
	}

	contentType := img.MimeType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	storageRef, err := p.objects.Put(ctx, objectName(latitude, longitude, fingerprint, img), img.Data, contentType)
	if err != nil {
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultStorageError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	// The raw bytes are stored now. Detach from the request context so a
	// client disconnect cannot strand an object with no matching record.
	ctx = context.WithoutCancel(ctx)

	annotationStart := p.now()
	response, err := p.model.AssessImage(ctx, img.Data, contentType, latitude, longitude)
	metrics.AnnotationDurationSeconds.Observe(time.Since(annotationStart).Seconds())
	if err != nil {
		// Bytes are stored but no record exists; accepted as an orphaned
		// object, not corrected here.
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultAnnotationError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrAnnotationFailed, err)
	}

	assessment := parser.ParseAssessment(response)
	if assessment.Unparsed {
		logger.Warnf("Model response was not valid JSON, keeping raw text")
	}
	if assessment.GPS == "" {
		assessment.GPS = fmt.Sprintf("%v, %v", latitude, longitude)
	}

	trackingID, err := p.allocator.Allocate(ctx)
	if err != nil {
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultAllocationError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrIdAllocationFailed, err)
	}
	metrics.TrackingIdsIssuedTotal.Inc()

	report := &models.Report{
		Fingerprint: fingerprint,
		TrackingID:  trackingID,
		Latitude:    latitude,
		Longitude:   longitude,
		Assessment:  *assessment,
		StorageRef:  storageRef,
		OwnerID:     identity.UserID,
		OwnerEmail:  identity.Email,
		CreatedAt:   p.now().UTC(),
		Status:      models.StatusSubmitted,
	}

	if err := p.store.InsertReport(ctx, report); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			// Lost the race against a concurrent identical submission.
			// Discard our record and return the winner's, never
			// overwriting an existing report.
			logger.Infof("Lost insert race for %s, resolving to existing report", fingerprint)
			winner, lookupErr := p.store.LookupReport(ctx, fingerprint)
			if lookupErr != nil {
				metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
				return nil, fmt.Errorf("%w: race fallback lookup: %v", ErrPersistenceFailed, lookupErr)
			}
			metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultDeduped).Inc()
			return dedupedCopy(winner), nil
		}
		metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultPersistenceError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	logger.Infof("Report %s persisted", trackingID)
	metrics.ImagesProcessedTotal.WithLabelValues(metrics.ResultDone).Inc()
	p.publishReport(logger, report)

	return report, nil
}

// publishReport forwards a freshly accepted report to the downstream workflow.
func (p *Pipeline) publishReport(logger log.Interface, report *models.Report) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(report); err != nil {
		logger.Errorf("Failed to publish report %s: %v", report.TrackingID, err)
		return
	}
	logger.Infof("Published report %s for downstream processing", report.TrackingID)
}

// dedupedCopy returns the existing report with the deduped marker set, leaving
// every other field untouched.
func dedupedCopy(existing *models.Report) *models.Report {
	dup := *existing
	dup.Deduped = true
	return &dup
}

// objectName derives the stored object's name from the reported location and
// the content fingerprint, so identical content submitted at different
// locations still produces distinct stored objects.
func objectName(latitude, longitude float64, fingerprint string, img models.SubmissionImage) string {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(img.MimeType); err == nil && len(exts) > 0 {
			ext = exts[0]
		} else {
			ext = ".jpg"
		}
	}
	return fmt.Sprintf("pothole_%v_%v_%s%s", latitude, longitude, fingerprint, ext)
}
