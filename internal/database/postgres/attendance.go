package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// AttendanceRepository provides the PostgreSQL-backed attendance ledger
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = `id, reg_no, name, session_name,
	to_char(date, 'YYYY-MM-DD'), to_char(time, 'HH24:MI:SS'),
	status, mode, created_at`

// InsertAttendance appends a record unless (reg_no, session_name, date) already exists.
// The unique constraint decides concurrent inserts, so exactly one caller observes inserted=true.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, rec database.AttendanceRecord) (*database.AttendanceRecord, bool, error) {
	query := `
		INSERT INTO attendance (reg_no, name, session_name, date, time, status, mode)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7)
		ON CONFLICT (reg_no, session_name, date) DO NOTHING
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		rec.RegNo,
		rec.DisplayName,
		rec.SessionName,
		rec.Date,
		rec.Time,
		rec.Status,
		rec.Mode,
	).Scan(&rec.ID, &rec.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert attendance: %w", err)
	}
	return &rec, true, nil
}

// ListAttendanceByRegNo returns all records of a student with the given status
func (r *AttendanceRepository) ListAttendanceByRegNo(ctx context.Context, regNo, status string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE reg_no = $1 AND status = $2
		ORDER BY date, time, id
	`, regNo, status)
	if err != nil {
		return nil, fmt.Errorf("query attendance by reg_no: %w", err)
	}
	return collectAttendance(rows)
}

// ListAttendanceBySession returns all records of a session on a day
func (r *AttendanceRepository) ListAttendanceBySession(ctx context.Context, sessionName, date string) ([]database.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE session_name = $1 AND date = $2::date
		ORDER BY time, reg_no
	`, sessionName, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance by session: %w", err)
	}
	return collectAttendance(rows)
}

// GetAttendance retrieves the record for the unique key, returns nil if not found
func (r *AttendanceRepository) GetAttendance(ctx context.Context, regNo, sessionName, date string) (*database.AttendanceRecord, error) {
	rec, err := scanAttendance(r.pool.QueryRow(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE reg_no = $1 AND session_name = $2 AND date = $3::date
	`, regNo, sessionName, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &rec, nil
}

func collectAttendance(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

func scanAttendance(scanner interface{ Scan(...any) error }) (database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	err := scanner.Scan(
		&rec.ID,
		&rec.RegNo,
		&rec.DisplayName,
		&rec.SessionName,
		&rec.Date,
		&rec.Time,
		&rec.Status,
		&rec.Mode,
		&rec.CreatedAt,
	)
	return rec, err
}
