package models

import (
	"time"
)

// Report statuses. New reports always start as StatusSubmitted; downstream
// workflow services move them through the rest of the lifecycle.
const (
	StatusSubmitted = "submitted"
)

// Damage types the assessment model is asked to choose from.
const (
	DamageTypePothole  = "pothole"
	DamageTypeCrack    = "crack"
	DamageTypeRutting  = "rutting"
	DamageTypeNoDamage = "no_damage"
)

// Assessment is the structured damage assessment produced by the model.
// When the model's output cannot be parsed as JSON, Unparsed is set and Raw
// carries the original response text; the structured fields are left empty.
type Assessment struct {
	DamageType  string `json:"type"`
	Severity    int    `json:"severity"`
	Urgency     string `json:"urgency"`
	Explanation string `json:"explanation"`
	GPS         string `json:"gps"`
	Unparsed    bool   `json:"unparsed,omitempty"`
	Raw         string `json:"raw,omitempty"`
}

// Report is the durable record of one assessed image, keyed by the content
// fingerprint of its bytes. All fields except Status are write-once.
type Report struct {
	Fingerprint string     `json:"fingerprint"`
	TrackingID  string     `json:"tracking_id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Assessment  Assessment `json:"assessment"`
	StorageRef  string     `json:"storage_ref"`
	OwnerID     string     `json:"owner_id"`
	OwnerEmail  string     `json:"owner_email"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      string     `json:"status"`
	Deduped     bool       `json:"deduped"`
}

// SubmissionImage is one image within a submission.
type SubmissionImage struct {
	Data     []byte
	Filename string
	MimeType string
}

// ImageResult is the tagged per-image outcome slot. Exactly one of Report and
// Error is set; results are returned in the same order as the input images.
type ImageResult struct {
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// OK reports whether this slot holds a successful result.
func (r *ImageResult) OK() bool {
	return r.Report != nil
}
