package database

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the persistent store could not be reached or failed.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageTimeout is a transient failure, the caller may retry.
	ErrStorageTimeout = errors.New("storage timeout")
	// ErrEmbeddingDimensionMismatch rejects vectors whose length differs from the store dimension.
	ErrEmbeddingDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrUnknownIdentity means the registration number is absent from the student directory.
	ErrUnknownIdentity = errors.New("unknown identity")
	// ErrDuplicateSession is returned when a session name is already taken.
	ErrDuplicateSession = errors.New("session already exists")
	// ErrNoSessionsDefined means no session definitions exist yet.
	ErrNoSessionsDefined = errors.New("no sessions defined")
	// ErrNotFound is returned for missing records.
	ErrNotFound = errors.New("not found")
	// ErrNoFaceDetected is returned when the extractor finds no face in an image.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrInvalidInput rejects malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// taxonomy lists errors that are passed through StorageError untouched.
var taxonomy = []error{
	ErrStorageUnavailable,
	ErrStorageTimeout,
	ErrEmbeddingDimensionMismatch,
	ErrUnknownIdentity,
	ErrDuplicateSession,
	ErrNoSessionsDefined,
	ErrNotFound,
	ErrNoFaceDetected,
	ErrInvalidInput,
}

// StorageError converts a repository error into the error taxonomy.
// The driver error is kept in the message only, never as a wrapped type.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range taxonomy {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrStorageTimeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}

// IsTransient reports whether the operation may succeed when retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageUnavailable)
}
