package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"pothole-ingest-pipeline/auth"
	"pothole-ingest-pipeline/database"
	"pothole-ingest-pipeline/models"
	"pothole-ingest-pipeline/pipeline"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// MaxImageSize caps a single uploaded image.
const MaxImageSize = 10 << 20 // 10MB

// Handlers represents the HTTP handlers
type Handlers struct {
	db   *database.Database
	pipe *pipeline.Pipeline
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *database.Database, pipe *pipeline.Pipeline) *Handlers {
	return &Handlers{db: db, pipe: pipe}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pothole-ingest-pipeline",
	})
}

// Analyze accepts a multipart submission of one or more images plus a single
// coordinate pair, runs the ingestion pipeline on each image, and returns one
// tagged result slot per image in input order.
func (h *Handlers) Analyze(c *gin.Context) {
	identity := callerIdentity(c)

	latitude, err := strconv.ParseFloat(c.PostForm("latitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing latitude"})
		return
	}
	longitude, err := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing longitude"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		return
	}

	images := make([]models.SubmissionImage, 0, len(files))
	for _, fh := range files {
		if fh.Size > MaxImageSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}
		images = append(images, models.SubmissionImage{
			Data:     data,
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
		})
	}

	results := h.pipe.ProcessSubmission(c.Request.Context(), identity, latitude, longitude, images)

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// StatusLookup returns the report carrying a tracking id.
func (h *Handlers) StatusLookup(c *gin.Context) {
	trackingID := c.Param("tracking_id")

	report, err := h.db.LookupByTrackingID(c.Request.Context(), trackingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tracking id not found"})
			return
		}
		log.Errorf("Failed to look up tracking id %s: %v", trackingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// MyReports returns all reports owned by the caller.
func (h *Handlers) MyReports(c *gin.Context) {
	identity := callerIdentity(c)

	reports, err := h.db.ListReportsByOwner(c.Request.Context(), identity.UserID)
	if err != nil {
		log.Errorf("Failed to list reports for user %s: %v", identity.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// callerIdentity reads the identity the auth middleware placed in the context.
func callerIdentity(c *gin.Context) pipeline.Identity {
	return pipeline.Identity{
		UserID: c.GetString(auth.ContextUserID),
		Email:  c.GetString(auth.ContextEmail),
	}
}
