package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled face embeddings
type IdentityReader interface {
	// ListIdentities returns every enrolled identity ordered by registration number
	ListIdentities(ctx context.Context) ([]StoredIdentity, error)
	// GetIdentity retrieves an identity, returns nil if not found
	GetIdentity(ctx context.Context, regNo string) (*StoredIdentity, error)
	// CountIdentities returns the number of enrolled identities
	CountIdentities(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled face embeddings
type IdentityWriter interface {
	IdentityReader

	// UpsertIdentity inserts or overwrites the identity in a single atomic write
	UpsertIdentity(ctx context.Context, identity StoredIdentity) error
	// DeleteIdentity removes the identity and reports whether it existed
	DeleteIdentity(ctx context.Context, regNo string) (bool, error)
}

// SessionReader provides read-only access to session definitions
type SessionReader interface {
	// ListSessions returns all session definitions ordered by creation
	ListSessions(ctx context.Context) ([]Session, error)
	// GetSession retrieves a session by name, returns nil if not found
	GetSession(ctx context.Context, sessionName string) (*Session, error)
}

// SessionWriter creates session definitions
type SessionWriter interface {
	SessionReader

	// CreateSession stores a new session. Returns ErrDuplicateSession if the name exists.
	CreateSession(ctx context.Context, session Session) (*Session, error)
}

// AttendanceReader provides read-only access to the attendance ledger
type AttendanceReader interface {
	// ListAttendanceByRegNo returns all records of a student with the given status
	ListAttendanceByRegNo(ctx context.Context, regNo, status string) ([]AttendanceRecord, error)
	// ListAttendanceBySession returns all records of a session on a day
	ListAttendanceBySession(ctx context.Context, sessionName, date string) ([]AttendanceRecord, error)
	// GetAttendance retrieves the record for the unique key, returns nil if not found
	GetAttendance(ctx context.Context, regNo, sessionName, date string) (*AttendanceRecord, error)
}

// AttendanceWriter appends to the attendance ledger
type AttendanceWriter interface {
	AttendanceReader

	// InsertAttendance inserts the record unless one already exists for
	// (RegNo, SessionName, Date). Returns inserted=false on conflict; the
	// store's uniqueness constraint is the enforcement point.
	InsertAttendance(ctx context.Context, record AttendanceRecord) (*AttendanceRecord, bool, error)
}

// StudentDirectory resolves registration numbers to students
type StudentDirectory interface {
	// GetStudent retrieves a student, returns nil if not found
	GetStudent(ctx context.Context, regNo string) (*Student, error)
	// ListStudents returns all students ordered by registration number
	ListStudents(ctx context.Context) ([]Student, error)
}

// StudentWriter maintains a local student directory
type StudentWriter interface {
	StudentDirectory

	// UpsertStudent inserts or updates a student
	UpsertStudent(ctx context.Context, student Student) error
}

// Store bundles the repositories of a single backend.
type Store interface {
	IdentityWriter
	SessionWriter
	AttendanceWriter
	StudentWriter

	// Close releases the underlying connections
	Close() error
}
