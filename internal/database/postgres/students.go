package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// StudentRepository provides the PostgreSQL-backed student directory
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetStudent retrieves a student, returns nil if not found
func (r *StudentRepository) GetStudent(ctx context.Context, regNo string) (*database.Student, error) {
	var s database.Student
	err := r.pool.QueryRow(ctx, `
		SELECT reg_no, first_name, last_name, department, email
		FROM students
		WHERE reg_no = $1
	`, regNo).Scan(&s.RegNo, &s.FirstName, &s.LastName, &s.Department, &s.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}

// ListStudents returns all students ordered by registration number.
// Enrolled is left false; callers fill it from the identity snapshot.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := r.pool.Query(ctx, `
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
		if err := rows.Scan(&s.RegNo, &s.FirstName, &s.LastName, &s.Department, &s.Email); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// UpsertStudent inserts or updates a student
func (r *StudentRepository) UpsertStudent(ctx context.Context, s database.Student) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (reg_no, first_name, last_name, department, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (reg_no) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			department = EXCLUDED.department,
			email = EXCLUDED.email
	`, s.RegNo, s.FirstName, s.LastName, s.Department, s.Email)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}
