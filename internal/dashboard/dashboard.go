// Package dashboard computes per-subject attendance summaries for a student.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// SubjectStats is the attendance of one subject.
type SubjectStats struct {
	SubjectName string  `json:"subjectName"`
	Attended    int     `json:"attended"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	// Recorded is the raw record count before capping at Total.
	Recorded int `json:"recorded"`
}

// OverallStats sums all subjects.
type OverallStats struct {
	OverallPercentage int `json:"overallPercentage"`
	ClassesAttended   int `json:"classesAttended"`
	ClassesMissed     int `json:"classesMissed"`
	TotalSubjects     int `json:"totalSubjects"`
}

// Data is the dashboard of one student.
type Data struct {
	RegNo       string         `json:"registrationNumber"`
	Name        string         `json:"name"`
	Overall     OverallStats   `json:"overallStats"`
	SubjectWise []SubjectStats `json:"subjectWise"`
}

// Aggregator reads sessions and attendance records. It never writes.
type Aggregator struct {
	sessions  database.SessionReader
	records   database.AttendanceReader
	directory database.StudentDirectory
	timeout   time.Duration
}

// NewAggregator creates an aggregator.
func NewAggregator(sessions database.SessionReader, records database.AttendanceReader, directory database.StudentDirectory, timeout time.Duration) *Aggregator {
	return &Aggregator{sessions: sessions, records: records, directory: directory, timeout: timeout}
}

// ComputeDashboard returns the attendance summary of regNo. Returns
// ErrNotFound for a student missing from the directory and
// ErrNoSessionsDefined when no session exists yet.
func (a *Aggregator) ComputeDashboard(ctx context.Context, regNo string) (*Data, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	student, err := a.directory.GetStudent(ctx, regNo)
	if err != nil {
		return nil, database.StorageError("get student", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %q: %w", regNo, database.ErrNotFound)
	}

	sessions, err := a.sessions.ListSessions(ctx)
	if err != nil {
		return nil, database.StorageError("list sessions", err)
	}
	if len(sessions) == 0 {
		return nil, database.ErrNoSessionsDefined
	}

	records, err := a.records.ListAttendanceByRegNo(ctx, regNo, database.StatusPresent)
	if err != nil {
		return nil, database.StorageError("list attendance", err)
	}

	data := Aggregate(sessions, records)
	data.RegNo = student.RegNo
	data.Name = student.DisplayName()
	return data, nil
}

// Aggregate groups session totals by subject and counts records whose
// session belongs to each subject. Records of unknown sessions are ignored.
// Subjects are ordered by name.
func Aggregate(sessions []database.Session, records []database.AttendanceRecord) *Data {
	totals := make(map[string]int)
	subjectOf := make(map[string]string, len(sessions))
	for _, s := range sessions {
		totals[s.Subject] += s.TotalClasses
		subjectOf[s.SessionName] = s.Subject
	}

	recorded := make(map[string]int)
	for _, r := range records {
		if r.Status != database.StatusPresent {
			continue
		}
		if subject, ok := subjectOf[r.SessionName]; ok {
			recorded[subject]++
		}
	}

	subjects := make([]string, 0, len(totals))
	for subject := range totals {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	data := &Data{SubjectWise: make([]SubjectStats, 0, len(subjects))}
	var attendedSum, totalSum int
	for _, subject := range subjects {
		total := totals[subject]
		attended := min(recorded[subject], total)

		var pct float64
		if total > 0 {
			pct = math.Round(float64(attended)/float64(total)*1000) / 10
		}

		data.SubjectWise = append(data.SubjectWise, SubjectStats{
			SubjectName: subject,
			Attended:    attended,
			Total:       total,
			Percentage:  pct,
			Recorded:    recorded[subject],
		})
		attendedSum += attended
		totalSum += total
	}

	data.Overall = OverallStats{
		ClassesAttended: attendedSum,
		ClassesMissed:   totalSum - attendedSum,
		TotalSubjects:   len(subjects),
	}
	if totalSum > 0 {
		data.Overall.OverallPercentage = int(math.Round(float64(attendedSum) / float64(totalSum) * 100))
	}
	return data
}
