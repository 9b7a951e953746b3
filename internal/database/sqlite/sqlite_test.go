package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIsURL(t *testing.T) {
	if !IsURL("sqlite:///var/lib/attendance.db") {
		t.Error("expected sqlite:// URL to match")
	}
	if IsURL("postgres://localhost/db") {
		t.Error("expected postgres URL not to match")
	}
}

func TestIdentities(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []database.StoredIdentity{
		{RegNo: "B2", DisplayName: "Ravi", Embedding: []float32{0, 1, 0}},
		{RegNo: "A1", DisplayName: "Asha", Embedding: []float32{1, 0, 0}},
	} {
		if err := store.UpsertIdentity(ctx, id); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	list, err := store.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].RegNo != "A1" {
		t.Fatalf("expected ordered identities, got %+v", list)
	}
	if list[0].Dim != 3 || list[0].Embedding[0] != 1 {
		t.Errorf("unexpected embedding round trip: %+v", list[0])
	}

	if err := store.UpsertIdentity(ctx, database.StoredIdentity{RegNo: "A1", DisplayName: "Asha R", Embedding: []float32{0, 0, 1}}); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, err := store.GetIdentity(ctx, "A1")
	if err != nil || got == nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.DisplayName != "Asha R" || got.Embedding[2] != 1 {
		t.Errorf("expected overwrite, got %+v", got)
	}

	count, _ := store.CountIdentities(ctx)
	if count != 2 {
		t.Errorf("expected 2 identities, got %d", count)
	}

	existed, err := store.DeleteIdentity(ctx, "A1")
	if err != nil || !existed {
		t.Errorf("expected delete to succeed, got %v %v", existed, err)
	}
	existed, _ = store.DeleteIdentity(ctx, "A1")
	if existed {
		t.Error("expected second delete to report false")
	}
	if got, _ := store.GetIdentity(ctx, "A1"); got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateSession(ctx, database.Session{SessionName: "DBMS-A", Subject: "DBMS", TotalClasses: 12})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}

	_, err = store.CreateSession(ctx, database.Session{SessionName: "DBMS-A", Subject: "DBMS"})
	if !errors.Is(err, database.ErrDuplicateSession) {
		t.Errorf("expected ErrDuplicateSession, got %v", err)
	}

	got, err := store.GetSession(ctx, "DBMS-A")
	if err != nil || got == nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Subject != "DBMS" || got.TotalClasses != 12 {
		t.Errorf("unexpected session %+v", got)
	}

	missing, err := store.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil session, got %+v %v", missing, err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil || len(sessions) != 1 {
		t.Errorf("expected one session, got %d %v", len(sessions), err)
	}
}

func TestInsertAttendanceIsUnique(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := database.AttendanceRecord{
		RegNo:       "A1",
		DisplayName: "Asha",
		SessionName: "DBMS-A",
		Date:        "2026-03-02",
		Time:        "09:00:00",
		Status:      database.StatusPresent,
		Mode:        "In-Person",
	}

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.InsertAttendance(ctx, rec)
			if err != nil {
				t.Errorf("insert failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Fatalf("expected exactly one insert, got %d", inserted)
	}

	next := rec
	next.Date = "2026-03-03"
	saved, ok, err := store.InsertAttendance(ctx, next)
	if err != nil || !ok {
		t.Fatalf("expected insert on a new day, got %v %v", ok, err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned id")
	}

	byRegNo, err := store.ListAttendanceByRegNo(ctx, "A1", database.StatusPresent)
	if err != nil || len(byRegNo) != 2 {
		t.Errorf("expected 2 records, got %d %v", len(byRegNo), err)
	}
	bySession, err := store.ListAttendanceBySession(ctx, "DBMS-A", "2026-03-02")
	if err != nil || len(bySession) != 1 {
		t.Errorf("expected 1 record for the day, got %d %v", len(bySession), err)
	}
	got, err := store.GetAttendance(ctx, "A1", "DBMS-A", "2026-03-02")
	if err != nil || got == nil || got.Time != "09:00:00" {
		t.Errorf("unexpected record %+v %v", got, err)
	}
}

func TestStudents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertStudent(ctx, database.Student{RegNo: "B2", FirstName: "Ravi"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.UpsertStudent(ctx, database.Student{RegNo: "A1", FirstName: "Asha", LastName: "Rao"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.UpsertStudent(ctx, database.Student{RegNo: "A1", FirstName: "Asha", LastName: "Rao", Department: "CSE"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	students, err := store.ListStudents(ctx)
	if err != nil || len(students) != 2 {
		t.Fatalf("expected 2 students, got %d %v", len(students), err)
	}
	if students[0].RegNo != "A1" || students[0].Department != "CSE" {
		t.Errorf("unexpected first student %+v", students[0])
	}

	missing, err := store.GetStudent(ctx, "Z9")
	if err != nil || missing != nil {
		t.Errorf("expected nil student, got %+v %v", missing, err)
	}
}
