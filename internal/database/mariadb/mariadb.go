// Package mariadb reads the student directory from an external MariaDB
// database, typically the institution's student information system.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// GetStudent retrieves a student by registration number, returns nil if not found.
func (p *Pool) GetStudent(ctx context.Context, regNo string) (*database.Student, error) {
	var s database.Student
	var lastName, department, email sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT reg_no, first_name, last_name, department, email
		FROM students
		WHERE reg_no = ?
	`, regNo).Scan(&s.RegNo, &s.FirstName, &lastName, &department, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query student %s: %w", regNo, err)
	}
	s.LastName = lastName.String
	s.Department = department.String
	s.Email = email.String
	return &s, nil
}

// ListStudents returns all students ordered by registration number.
func (p *Pool) ListStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT reg_no, first_name, last_name, department, email
		FROM students
		ORDER BY reg_no
	`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []database.Student
	for rows.Next() {
		var s database.Student
		var lastName, department, email sql.NullString
		if err := rows.Scan(&s.RegNo, &s.FirstName, &lastName, &department, &email); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.LastName = lastName.String
		s.Department = department.String
		s.Email = email.String
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

var _ database.StudentDirectory = (*Pool)(nil)
