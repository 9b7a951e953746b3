package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// SessionRepository provides PostgreSQL-backed class session definitions
type SessionRepository struct {
	pool *Pool
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, session_name, subject, department, year, section, total_classes, faculty_email, created_at`

// CreateSession stores a new session definition with a generated ID
func (r *SessionRepository) CreateSession(ctx context.Context, s database.Session) (*database.Session, error) {
	query := `
		INSERT INTO sessions (id, session_name, subject, department, year, section, total_classes, faculty_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + sessionColumns

	created, err := scanSession(r.pool.QueryRow(ctx, query,
		uuid.New().String(),
		s.SessionName,
		s.Subject,
		s.Department,
		s.Year,
		s.Section,
		s.TotalClasses,
		s.FacultyEmail,
	))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create session %q: %w", s.SessionName, database.ErrDuplicateSession)
	}
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &created, nil
}

// ListSessions returns all session definitions ordered by creation
func (r *SessionRepository) ListSessions(ctx context.Context) ([]database.Session, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+sessionColumns+" FROM sessions ORDER BY created_at, session_name")
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// GetSession retrieves a session by name, returns nil if not found
func (r *SessionRepository) GetSession(ctx context.Context, sessionName string) (*database.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE session_name = $1", sessionName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func scanSession(scanner interface{ Scan(...any) error }) (database.Session, error) {
	var s database.Session
	err := scanner.Scan(
		&s.ID,
		&s.SessionName,
		&s.Subject,
		&s.Department,
		&s.Year,
		&s.Section,
		&s.TotalClasses,
		&s.FacultyEmail,
		&s.CreatedAt,
	)
	return s, err
}
