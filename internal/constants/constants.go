// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Attendance mode constants
const (
	// ModeInPerson is recorded for recognitions coming through the web API
	ModeInPerson = "in-person"

	// ModeOffline is recorded by the kiosk CLI running against a local database
	ModeOffline = "offline"
)

// Processing constants
const (
	// EnrollConcurrency is the number of parallel extractor calls per enrollment
	EnrollConcurrency = 4

	// MaxImageSize is the maximum dimension (width or height) sent to the embedding server
	MaxImageSize = 1920
)

// Handler constants
const (
	// MaxUploadSize is the maximum multipart body accepted by upload endpoints
	MaxUploadSize = 32 << 20

	// MaxEnrollImages is the maximum number of images per enrollment request
	MaxEnrollImages = 20

	// DefaultSimilarLimit is the default number of neighbours for similarity lookups
	DefaultSimilarLimit = 5

	// MaxSimilarLimit caps the k accepted by similarity lookups
	MaxSimilarLimit = 50
)
