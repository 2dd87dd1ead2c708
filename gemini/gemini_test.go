package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssessImage(t *testing.T) {
	var gotReq geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"type\":\"pothole\",\"severity\":4,\"urgency\":\"high\",\"explanation\":\"deep pothole\",\"gps\":\"12.97, 77.59\"}"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	got, err := c.AssessImage(context.Background(), []byte("fake image"), "image/png", 12.97, 77.59)
	if err != nil {
		t.Fatalf("AssessImage() error = %v", err)
	}
	if !strings.Contains(got, `"type":"pothole"`) {
		t.Errorf("AssessImage() = %q, want pothole assessment", got)
	}

	if gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("response_mime_type = %q, want application/json", gotReq.GenerationConfig.ResponseMimeType)
	}
	if gotReq.GenerationConfig.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", gotReq.GenerationConfig.Temperature)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", gotReq.Contents)
	}
	if !strings.Contains(gotReq.Contents[0].Parts[0].Text, "12.97, 77.59") {
		t.Errorf("prompt does not carry submitted coordinates: %q", gotReq.Contents[0].Parts[0].Text)
	}
	if gotReq.Contents[0].Parts[1].InlineData.MimeType != "image/png" {
		t.Errorf("inline data mime type = %q, want image/png", gotReq.Contents[0].Parts[1].InlineData.MimeType)
	}
}

func TestAssessImageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", "gemini-2.5-flash")
	c.baseURL = srv.URL

	_, err := c.AssessImage(context.Background(), []byte("fake image"), "image/jpeg", 0, 0)
	if err == nil {
		t.Fatal("AssessImage() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error %q does not carry upstream status", err)
	}
}
