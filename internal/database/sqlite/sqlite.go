// Package sqlite implements database.Store on a local SQLite file for
// single-node and offline deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/mattn/go-sqlite3"
)

// Scheme is the DATABASE_URL prefix that selects this backend.
const Scheme = "sqlite://"

// Store is a SQLite-backed database.Store
type Store struct {
	db *sql.DB
}

// IsURL reports whether a database URL selects the SQLite backend.
func IsURL(url string) bool {
	return strings.HasPrefix(url, Scheme)
}

// Open opens (or creates) the database file and initializes the schema.
// Accepts either a bare path or a sqlite:// URL.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimPrefix(path, Scheme)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer keeps busy errors away from the unique-key insert path
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		reg_no TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS identities (
		reg_no TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		embedding_json TEXT NOT NULL, -- JSON array of float32
		dim INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY, -- UUID
		session_name TEXT NOT NULL UNIQUE,
		subject TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		section TEXT NOT NULL DEFAULT '',
		total_classes INTEGER NOT NULL DEFAULT 0 CHECK (total_classes >= 0),
		faculty_email TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reg_no TEXT NOT NULL,
		name TEXT NOT NULL,
		session_name TEXT NOT NULL,
		date TEXT NOT NULL, -- YYYY-MM-DD
		time TEXT NOT NULL, -- HH:MM:SS
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (reg_no, session_name, date)
	);

	CREATE INDEX IF NOT EXISTS attendance_session_date_idx ON attendance (session_name, date);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Identity methods

// ListIdentities returns every enrolled identity ordered by registration number
func (s *Store) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT reg_no, display_name, embedding_json, dim, updated_at FROM identities ORDER BY reg_no")
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, rows.Err()
}

// GetIdentity retrieves an identity, returns nil if not found
func (s *Store) GetIdentity(ctx context.Context, regNo string) (*database.StoredIdentity, error) {
	id, err := scanIdentity(s.db.QueryRowContext(ctx,
		"SELECT reg_no, display_name, embedding_json, dim, updated_at FROM identities WHERE reg_no = ?", regNo))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// CountIdentities returns the number of enrolled identities
func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count identities: %w", err)
	}
	return count, nil
}

// UpsertIdentity inserts or overwrites an identity in a single statement
func (s *Store) UpsertIdentity(ctx context.Context, identity database.StoredIdentity) error {
	data, err := json.Marshal(identity.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (reg_no, display_name, embedding_json, dim, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (reg_no) DO UPDATE SET
			display_name = excluded.display_name,
			embedding_json = excluded.embedding_json,
			dim = excluded.dim,
			updated_at = excluded.updated_at
	`, identity.RegNo, identity.DisplayName, string(data), len(identity.Embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes an identity and reports whether it existed
func (s *Store) DeleteIdentity(ctx context.Context, regNo string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM identities WHERE reg_no = ?", regNo)
	if err != nil {
		return false, fmt.Errorf("failed to delete identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func scanIdentity(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var id database.StoredIdentity
	var embeddingJSON string
	var updatedAt sql.NullTime
	if err := scanner.Scan(&id.RegNo, &id.DisplayName, &embeddingJSON, &id.Dim, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id, err
		}
		return id, fmt.Errorf("failed to scan identity: %w", err)
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &id.Embedding); err != nil {
		return id, fmt.Errorf("failed to unmarshal embedding for %s: %w", id.RegNo, err)
	}
	if updatedAt.Valid {
		id.UpdatedAt = updatedAt.Time
	}
	return id, nil
}

// Session methods

const sessionColumns = "id, session_name, subject, department, year, section, total_classes, faculty_email, created_at"

// CreateSession stores a new session definition with a generated ID
func (s *Store) CreateSession(ctx context.Context, session database.Session) (*database.Session, error) {
	session.ID = uuid.NewString()
	session.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, session_name, subject, department, year, section, total_classes, faculty_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.SessionName, session.Subject, session.Department, session.Year,
		session.Section, session.TotalClasses, session.FacultyEmail, session.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create session %q: %w", session.SessionName, database.ErrDuplicateSession)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return &session, nil
}

// ListSessions returns all session definitions ordered by creation
func (s *Store) ListSessions(ctx context.Context) ([]database.Session, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY created_at, session_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// GetSession retrieves a session by name, returns nil if not found
func (s *Store) GetSession(ctx context.Context, sessionName string) (*database.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE session_name = ?", sessionName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func scanSession(scanner interface{ Scan(...any) error }) (database.Session, error) {
	var session database.Session
	err := scanner.Scan(&session.ID, &session.SessionName, &session.Subject, &session.Department,
		&session.Year, &session.Section, &session.TotalClasses, &session.FacultyEmail, &session.CreatedAt)
	return session, err
}

// Attendance methods

const attendanceColumns = "id, reg_no, name, session_name, date, time, status, mode, created_at"

// InsertAttendance appends a record unless (reg_no, session_name, date) already exists
func (s *Store) InsertAttendance(ctx context.Context, rec database.AttendanceRecord) (*database.AttendanceRecord, bool, error) {
	rec.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (reg_no, name, session_name, date, time, status, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (reg_no, session_name, date) DO NOTHING
	`, rec.RegNo, rec.DisplayName, rec.SessionName, rec.Date, rec.Time, rec.Status, rec.Mode, rec.CreatedAt)
	if isUniqueViolation(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert attendance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, false, nil
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return nil, false, fmt.Errorf("failed to get attendance id: %w", err)
	}
	return &rec, true, nil
}

// ListAttendanceByRegNo returns all records of a student with the given status
func (s *Store) ListAttendanceByRegNo(ctx context.Context, regNo, status string) ([]database.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE reg_no = ? AND status = ? ORDER BY date, time, id",
		regNo, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	return collectAttendance(rows)
}

// ListAttendanceBySession returns all records of a session on a day
func (s *Store) ListAttendanceBySession(ctx context.Context, sessionName, date string) ([]database.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE session_name = ? AND date = ? ORDER BY time, reg_no",
		sessionName, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	return collectAttendance(rows)
}

// GetAttendance retrieves the record for the unique key, returns nil if not found
func (s *Store) GetAttendance(ctx context.Context, regNo, sessionName, date string) (*database.AttendanceRecord, error) {
	rec, err := scanAttendance(s.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE reg_no = ? AND session_name = ? AND date = ?",
		regNo, sessionName, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &rec, nil
}

func collectAttendance(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	defer rows.Close()
	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAttendance(scanner interface{ Scan(...any) error }) (database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	err := scanner.Scan(&rec.ID, &rec.RegNo, &rec.DisplayName, &rec.SessionName,
		&rec.Date, &rec.Time, &rec.Status, &rec.Mode, &rec.CreatedAt)
	return rec, err
}

// Student methods

// GetStudent retrieves a student, returns nil if not found
func (s *Store) GetStudent(ctx context.Context, regNo string) (*database.Student, error) {
	var st database.Student
	err := s.db.QueryRowContext(ctx,
		"SELECT reg_no, first_name, last_name, department, email FROM students WHERE reg_no = ?", regNo).
		Scan(&st.RegNo, &st.FirstName, &st.LastName, &st.Department, &st.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &st, nil
}

// ListStudents returns all students ordered by registration number
func (s *Store) ListStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT reg_no, first_name, last_name, department, email FROM students ORDER BY reg_no")
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var st database.Student
		if err := rows.Scan(&st.RegNo, &st.FirstName, &st.LastName, &st.Department, &st.Email); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// UpsertStudent inserts or updates a student
func (s *Store) UpsertStudent(ctx context.Context, st database.Student) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (reg_no, first_name, last_name, department, email)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (reg_no) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			department = excluded.department,
			email = excluded.email
	`, st.RegNo, st.FirstName, st.LastName, st.Department, st.Email)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

var _ database.Store = (*Store)(nil)
