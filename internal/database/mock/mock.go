// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// MockIdentityStore is a mock implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]database.StoredIdentity

	// Error injection
	ListError   error
	GetError    error
	CountError  error
	UpsertError error
	DeleteError error
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]database.StoredIdentity),
	}
}

// AddIdentity adds an identity to the mock store
func (m *MockIdentityStore) AddIdentity(id database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id.Dim == 0 {
		id.Dim = len(id.Embedding)
	}
	m.identities[id.RegNo] = id
}

// ListIdentities returns identities ordered by registration number
func (m *MockIdentityStore) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]database.StoredIdentity, 0, len(m.identities))
	for _, id := range m.identities {
		id.Embedding = slices.Clone(id.Embedding)
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegNo < result[j].RegNo })
	return result, nil
}

// GetIdentity retrieves an identity
func (m *MockIdentityStore) GetIdentity(ctx context.Context, regNo string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[regNo]
	if !ok {
		return nil, nil
	}
	id.Embedding = slices.Clone(id.Embedding)
	return &id, nil
}

// CountIdentities returns the number of identities
func (m *MockIdentityStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// UpsertIdentity inserts or overwrites an identity
func (m *MockIdentityStore) UpsertIdentity(ctx context.Context, id database.StoredIdentity) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	id.Embedding = slices.Clone(id.Embedding)
	id.Dim = len(id.Embedding)
	id.UpdatedAt = time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[id.RegNo] = id
	return nil
}

// DeleteIdentity removes an identity
func (m *MockIdentityStore) DeleteIdentity(ctx context.Context, regNo string) (bool, error) {
	if m.DeleteError != nil {
		return false, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.identities[regNo]
	delete(m.identities, regNo)
	return ok, nil
}

// MockSessionStore is a mock implementation of database.SessionWriter
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions []database.Session

	ListError   error
	GetError    error
	CreateError error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

// AddSession adds a session to the mock store without uniqueness checks
func (m *MockSessionStore) AddSession(s database.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.sessions = append(m.sessions, s)
}

// CreateSession stores a session, enforcing unique names
func (m *MockSessionStore) CreateSession(ctx context.Context, s database.Session) (*database.Session, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.SessionName == s.SessionName {
			return nil, database.ErrDuplicateSession
		}
	}
	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()
	m.sessions = append(m.sessions, s)
	return &s, nil
}

// ListSessions returns sessions in insertion order
func (m *MockSessionStore) ListSessions(ctx context.Context) ([]database.Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.sessions), nil
}

// GetSession retrieves a session by name
func (m *MockSessionStore) GetSession(ctx context.Context, name string) (*database.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.SessionName == name {
			return &s, nil
		}
	}
	return nil, nil
}

type attendanceKey struct {
	regNo, sessionName, date string
}

// MockAttendanceStore is a mock implementation of database.AttendanceWriter
type MockAttendanceStore struct {
	mu      sync.RWMutex
	records []database.AttendanceRecord
	keys    map[attendanceKey]struct{}
	nextID  int64

	InsertError error
	ListError   error
	GetError    error
	// InsertDelay simulates a slow store, honoring context cancellation
	InsertDelay time.Duration
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{keys: make(map[attendanceKey]struct{})}
}

// InsertAttendance inserts a record unless its key exists
func (m *MockAttendanceStore) InsertAttendance(ctx context.Context, rec database.AttendanceRecord) (*database.AttendanceRecord, bool, error) {
	if m.InsertDelay > 0 {
		select {
		case <-time.After(m.InsertDelay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	if m.InsertError != nil {
		return nil, false, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := attendanceKey{rec.RegNo, rec.SessionName, rec.Date}
	if _, exists := m.keys[key]; exists {
		return nil, false, nil
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = time.Now()
	m.keys[key] = struct{}{}
	m.records = append(m.records, rec)
	return &rec, true, nil
}

// ListAttendanceByRegNo returns a student's records with the given status
func (m *MockAttendanceStore) ListAttendanceByRegNo(ctx context.Context, regNo, status string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.AttendanceRecord
	for _, r := range m.records {
		if r.RegNo == regNo && r.Status == status {
			result = append(result, r)
		}
	}
	return result, nil
}

// ListAttendanceBySession returns a session's records on a day
func (m *MockAttendanceStore) ListAttendanceBySession(ctx context.Context, sessionName, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.AttendanceRecord
	for _, r := range m.records {
		if r.SessionName == sessionName && r.Date == date {
			result = append(result, r)
		}
	}
	return result, nil
}

// GetAttendance retrieves a record by its unique key
func (m *MockAttendanceStore) GetAttendance(ctx context.Context, regNo, sessionName, date string) (*database.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.RegNo == regNo && r.SessionName == sessionName && r.Date == date {
			return &r, nil
		}
	}
	return nil, nil
}

// Records returns a copy of all stored records
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// MockStudentDirectory is a mock implementation of database.StudentWriter
type MockStudentDirectory struct {
	mu       sync.RWMutex
	students map[string]database.Student

	GetError    error
	ListError   error
	UpsertError error
}

// NewMockStudentDirectory creates a new mock student directory
func NewMockStudentDirectory() *MockStudentDirectory {
	return &MockStudentDirectory{students: make(map[string]database.Student)}
}

// AddStudent adds a student to the directory
func (m *MockStudentDirectory) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.RegNo] = s
}

// GetStudent retrieves a student
func (m *MockStudentDirectory) GetStudent(ctx context.Context, regNo string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[regNo]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// ListStudents returns students ordered by registration number
func (m *MockStudentDirectory) ListStudents(ctx context.Context) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Student, 0, len(m.students))
	for _, s := range m.students {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegNo < result[j].RegNo })
	return result, nil
}

// UpsertStudent inserts or updates a student
func (m *MockStudentDirectory) UpsertStudent(ctx context.Context, s database.Student) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.AddStudent(s)
	return nil
}

// Store combines all mocks into a database.Store
type Store struct {
	*MockIdentityStore
	*MockSessionStore
	*MockAttendanceStore
	*MockStudentDirectory

	CloseCalled bool
}

// NewStore creates an empty mock store
func NewStore() *Store {
	return &Store{
		MockIdentityStore:    NewMockIdentityStore(),
		MockSessionStore:     NewMockSessionStore(),
		MockAttendanceStore:  NewMockAttendanceStore(),
		MockStudentDirectory: NewMockStudentDirectory(),
	}
}

// Close records that the store was closed
func (s *Store) Close() error {
	s.CloseCalled = true
	return nil
}

var _ database.Store = (*Store)(nil)
