package database

import (
	"time"
)

// StatusPresent is the only attendance status materialized by the ledger.
const StatusPresent = "Present"

// Date and time layouts used for attendance records.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// StoredIdentity represents an enrolled identity with its face embedding
type StoredIdentity struct {
	RegNo       string
	DisplayName string
	Embedding   []float32
	Dim         int
	UpdatedAt   time.Time
}

// Session is a class session definition. Subject groups sessions for dashboards.
type Session struct {
	ID           string    `json:"id"`
	SessionName  string    `json:"session_name" validate:"required,max=255"`
	Subject      string    `json:"subject" validate:"required,max=255"`
	Department   string    `json:"department" validate:"max=255"`
	Year         int       `json:"year" validate:"gte=0"`
	Section      string    `json:"section" validate:"max=64"`
	TotalClasses int       `json:"total_classes" validate:"gte=0"`
	FacultyEmail string    `json:"faculty_email" validate:"omitempty,email"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceRecord is a single "present" event.
// (RegNo, SessionName, Date) is unique across the ledger.
type AttendanceRecord struct {
	ID          int64     `json:"id"`
	RegNo       string    `json:"reg_no"`
	DisplayName string    `json:"name"`
	SessionName string    `json:"session_name"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Time        string    `json:"time"` // HH:MM:SS
	Status      string    `json:"status"`
	Mode        string    `json:"mode"`
	CreatedAt   time.Time `json:"created_at"`
}

// Student is an entry of the student directory
type Student struct {
	RegNo      string `json:"registration_number" validate:"required,max=64"`
	FirstName  string `json:"first_name" validate:"required,max=255"`
	LastName   string `json:"last_name" validate:"max=255"`
	Department string `json:"department" validate:"max=255"`
	Email      string `json:"email" validate:"omitempty,email"`
	Enrolled   bool   `json:"enrolled"`
}

// DisplayName returns the full name shown on attendance records.
func (s *Student) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
