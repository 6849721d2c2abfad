package models

import "time"

// ConversionStatus represents the lifecycle state of a conversion
type ConversionStatus string

const (
	ConversionStatusPending    ConversionStatus = "pending"
	ConversionStatusProcessing ConversionStatus = "processing"
	// ConversionStatusCompleted means the artifact passed validation.
	ConversionStatusCompleted ConversionStatus = "completed"
	// ConversionStatusInvalid means a best-effort artifact was stored but
	// still fails validation after repair.
	ConversionStatusInvalid ConversionStatus = "invalid"
	ConversionStatusFailed  ConversionStatus = "failed"
)

// IsValid checks if the status is a valid value
func (s ConversionStatus) IsValid() bool {
	switch s {
	case ConversionStatusPending, ConversionStatusProcessing, ConversionStatusCompleted,
		ConversionStatusInvalid, ConversionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the conversion will not change state again.
func (s ConversionStatus) IsTerminal() bool {
	return s == ConversionStatusCompleted || s == ConversionStatusInvalid || s == ConversionStatusFailed
}

// String returns the string representation
func (s ConversionStatus) String() string {
	return string(s)
}

// Conversion is the status record polled by callers of the background service.
type Conversion struct {
	ID              string           `db:"id" json:"id"`
	Title           string           `db:"title" json:"title"`
	Episode         int              `db:"episode" json:"episode"`
	Status          ConversionStatus `db:"status" json:"status"`
	Chunks          int              `db:"chunks" json:"chunks"`
	ArtifactKey     *string          `db:"artifact_key" json:"artifact_key,omitempty"`
	DurationSeconds *float64         `db:"duration_seconds" json:"duration_seconds,omitempty"`
	SizeBytes       *int64           `db:"size_bytes" json:"size_bytes,omitempty"`
	Repaired        bool             `db:"repaired" json:"repaired"`
	Report          *string          `db:"report" json:"report,omitempty"` // JSON ValidationReport
	ErrorKind       *string          `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage    *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

// ConversionRequest is what a caller submits to the background service.
type ConversionRequest struct {
	Text         string             `json:"text"`
	Metadata     PodcastMetadata    `json:"metadata"`
	Requirements *AudioRequirements `json:"requirements,omitempty"`
}
