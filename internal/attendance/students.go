package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

var validate = validator.New()

// ErrReadOnlyDirectory is returned when students are managed by an external directory.
var ErrReadOnlyDirectory = errors.New("student directory is read-only")

// StudentFilter narrows ListStudents.
type StudentFilter struct {
	Enrolled *bool  // nil lists everyone
	Query    string // matched against registration number and name, diacritics-insensitive
}

// ListStudents returns the directory with each student's enrollment status.
func (s *Service) ListStudents(ctx context.Context, filter StudentFilter) ([]database.Student, error) {
	students, err := s.directory.ListStudents(ctx)
	if err != nil {
		return nil, database.StorageError("list students", err)
	}

	snap := s.identities.Snapshot()
	query := NormalizeSearch(filter.Query)

	result := make([]database.Student, 0, len(students))
	for _, st := range students {
		st.Enrolled = snap.Has(st.RegNo)
		if filter.Enrolled != nil && st.Enrolled != *filter.Enrolled {
			continue
		}
		if !matchesStudent(query, st.RegNo, st.DisplayName()) {
			continue
		}
		result = append(result, st)
	}
	return result, nil
}

// UpsertStudent adds or updates a student when the directory is writable.
func (s *Service) UpsertStudent(ctx context.Context, student database.Student) error {
	writer, ok := s.directory.(database.StudentWriter)
	if !ok {
		return ErrReadOnlyDirectory
	}
	if err := validate.Struct(student); err != nil {
		return fmt.Errorf("%w: %v", database.ErrInvalidInput, err)
	}
	if err := writer.UpsertStudent(ctx, student); err != nil {
		return database.StorageError("upsert student", err)
	}
	return nil
}
