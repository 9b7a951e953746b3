// Package ledger records attendance events, at most one per student,
// session and calendar day.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facial-attendance/internal/constants"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// Status is the outcome of MarkPresent.
type Status int

const (
	Marked Status = iota + 1
	AlreadyMarked
	UnknownIdentity
)

func (s Status) String() string {
	switch s {
	case Marked:
		return "marked"
	case AlreadyMarked:
		return "already_marked"
	case UnknownIdentity:
		return "unknown_identity"
	default:
		return "unknown"
	}
}

// Outcome is the result of MarkPresent. Record is the stored record for
// Marked and AlreadyMarked.
type Outcome struct {
	Status      Status
	DisplayName string
	Record      *database.AttendanceRecord
}

// Options configures a Ledger.
type Options struct {
	Location    *time.Location // zone used to derive date and time, defaults to time.Local
	DefaultMode string         // mode recorded when the caller passes none
	Timeout     time.Duration  // bound for each persistence call
	LockTimeout time.Duration  // bound for waiting on the per-key lock
}

// Ledger writes attendance records and session definitions.
type Ledger struct {
	records   database.AttendanceWriter
	sessions  database.SessionWriter
	directory database.StudentDirectory
	validate  *validator.Validate
	locks     *keyLock
	opts      Options
}

// New creates a ledger.
func New(records database.AttendanceWriter, sessions database.SessionWriter, directory database.StudentDirectory, opts Options) *Ledger {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = constants.ModeInPerson
	}
	return &Ledger{
		records:   records,
		sessions:  sessions,
		directory: directory,
		validate:  validator.New(),
		locks:     newKeyLock(),
		opts:      opts,
	}
}

func (l *Ledger) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// Location returns the zone used to derive attendance dates.
func (l *Ledger) Location() *time.Location {
	return l.opts.Location
}

// MarkPresent records regNo as present in sessionName on the calendar day of when.
// A second call for the same student, session and day returns AlreadyMarked and
// writes nothing, including when calls race. The storage uniqueness constraint
// decides between processes; the per-key lock avoids redundant round trips
// within one.
func (l *Ledger) MarkPresent(ctx context.Context, regNo, sessionName, mode string, when time.Time) (Outcome, error) {
	if regNo == "" || sessionName == "" {
		return Outcome{}, fmt.Errorf("%w: registration number and session name are required", database.ErrInvalidInput)
	}
	if mode = strings.TrimSpace(mode); mode == "" {
		mode = l.opts.DefaultMode
	}

	lookupCtx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	student, err := l.directory.GetStudent(lookupCtx, regNo)
	cancel()
	if err != nil {
		return Outcome{}, database.StorageError("resolve student", err)
	}
	if student == nil {
		return Outcome{Status: UnknownIdentity}, nil
	}
	name := student.DisplayName()

	local := when.In(l.opts.Location)
	rec := database.AttendanceRecord{
		RegNo:       regNo,
		DisplayName: name,
		SessionName: sessionName,
		Date:        local.Format(database.DateLayout),
		Time:        local.Format(database.TimeLayout),
		Status:      database.StatusPresent,
		Mode:        mode,
	}

	key := rec.RegNo + "\x00" + rec.SessionName + "\x00" + rec.Date
	lockCtx, cancel := l.withTimeout(ctx, l.opts.LockTimeout)
	err = l.locks.Lock(lockCtx, key)
	cancel()
	if err != nil {
		return Outcome{}, database.StorageError("acquire ledger lock", err)
	}
	defer l.locks.Unlock(key)

	writeCtx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	saved, inserted, err := l.records.InsertAttendance(writeCtx, rec)
	if err != nil {
		return Outcome{}, database.StorageError("insert attendance", err)
	}
	if inserted {
		return Outcome{Status: Marked, DisplayName: name, Record: saved}, nil
	}

	existing, err := l.records.GetAttendance(writeCtx, rec.RegNo, rec.SessionName, rec.Date)
	if err != nil {
		return Outcome{}, database.StorageError("get attendance", err)
	}
	return Outcome{Status: AlreadyMarked, DisplayName: name, Record: existing}, nil
}

// CreateSession validates and stores a session definition.
func (l *Ledger) CreateSession(ctx context.Context, session database.Session) (*database.Session, error) {
	session.SessionName = strings.TrimSpace(session.SessionName)
	session.Subject = strings.TrimSpace(session.Subject)
	if err := l.validate.Struct(session); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrInvalidInput, err)
	}

	ctx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	created, err := l.sessions.CreateSession(ctx, session)
	if err != nil {
		return nil, database.StorageError("create session", err)
	}
	return created, nil
}

// ListSessions returns all session definitions.
func (l *Ledger) ListSessions(ctx context.Context) ([]database.Session, error) {
	ctx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	sessions, err := l.sessions.ListSessions(ctx)
	if err != nil {
		return nil, database.StorageError("list sessions", err)
	}
	return sessions, nil
}

// GetSession returns the named session or ErrNotFound.
func (l *Ledger) GetSession(ctx context.Context, sessionName string) (*database.Session, error) {
	ctx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	session, err := l.sessions.GetSession(ctx, sessionName)
	if err != nil {
		return nil, database.StorageError("get session", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %q: %w", sessionName, database.ErrNotFound)
	}
	return session, nil
}

// ListSessionAttendance returns the records of a session on a day (YYYY-MM-DD).
func (l *Ledger) ListSessionAttendance(ctx context.Context, sessionName, date string) ([]database.AttendanceRecord, error) {
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", database.ErrInvalidInput)
	}

	ctx, cancel := l.withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	records, err := l.records.ListAttendanceBySession(ctx, sessionName, date)
	if err != nil {
		return nil, database.StorageError("list session attendance", err)
	}
	return records, nil
}
