package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pothole-ingest-pipeline/auth"
	"pothole-ingest-pipeline/database"
	"pothole-ingest-pipeline/models"
	"pothole-ingest-pipeline/pipeline"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{}

func (stubStore) LookupReport(ctx context.Context, fingerprint string) (*models.Report, error) {
	return nil, database.ErrNotFound
}

func (stubStore) InsertReport(ctx context.Context, r *models.Report) error { return nil }

type stubObjects struct{}

func (stubObjects) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	return "s3://pothole-images/" + objectName, nil
}

type stubAllocator struct{ n int }

func (a *stubAllocator) Allocate(ctx context.Context) (string, error) {
	a.n++
	return fmt.Sprintf("PTH-20260314-%06d", a.n), nil
}

type stubModel struct{}

func (stubModel) AssessImage(ctx context.Context, imageData []byte, mimeType string, latitude, longitude float64) (string, error) {
	return `{"type":"pothole","severity":4,"urgency":"high","explanation":"deep pothole","gps":"12.97, 77.59"}`, nil
}

func (stubModel) SourceName() string { return "stub" }

// testIdentity injects the identity the auth middleware would have set.
func testIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, "user-1")
		c.Set(auth.ContextEmail, "user@example.com")
		c.Next()
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := database.NewDatabaseFromConn(db)
	pipe := pipeline.New(stubStore{}, stubObjects{}, &stubAllocator{}, stubModel{}, nil)
	h := NewHandlers(d, pipe)

	router := gin.New()
	api := router.Group("/api/v3", testIdentity())
	api.POST("/analyze", h.Analyze)
	api.GET("/status/:tracking_id", h.StatusLookup)
	api.GET("/myreports", h.MyReports)

	return router, mock
}

func multipartSubmission(t *testing.T, lat, lng string, images map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("latitude", lat))
	require.NoError(t, w.WriteField("longitude", lng))
	for name, data := range images {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestAnalyze(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartSubmission(t, "12.97", "77.59", map[string][]byte{
		"road.jpg": []byte("image bytes"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v3/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []models.ImageResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Report)

	r := resp.Results[0].Report
	assert.Equal(t, "pothole", r.Assessment.DamageType)
	assert.Equal(t, models.StatusSubmitted, r.Status)
	assert.Equal(t, "user-1", r.OwnerID)
	assert.Regexp(t, `^PTH-\d{8}-\d{6}$`, r.TrackingID)
}

func TestAnalyzeMissingCoordinates(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartSubmission(t, "", "77.59", map[string][]byte{
		"road.jpg": []byte("image bytes"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v3/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeNoImages(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartSubmission(t, "12.97", "77.59", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v3/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusLookupNotFound(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE tracking_id = (.+)").
		WithArgs("PTH-20260314-999999").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/v3/status/PTH-20260314-999999", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyReportsEmpty(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE owner_id = (.+)").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"fingerprint", "tracking_id", "latitude", "longitude",
			"damage_type", "severity", "urgency", "explanation", "gps",
			"unparsed", "raw_assessment", "storage_ref", "owner_id",
			"owner_email", "status", "created_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v3/myreports", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}
