//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "directory",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, _ := container.Host(ctx)
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("test:test@tcp(%s:%s)/directory?parseTime=true", host, port.Port())

	var pool *Pool
	deadline := time.Now().Add(60 * time.Second)
	for {
		pool, err = NewPool(dsn)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	_, err = pool.db.ExecContext(ctx, `
		CREATE TABLE students (
			reg_no VARCHAR(64) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NULL,
			department VARCHAR(255) NULL,
			email VARCHAR(255) NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create students table: %v", err)
	}
	_, err = pool.db.ExecContext(ctx, `
		INSERT INTO students (reg_no, first_name, last_name, department, email) VALUES
			('21BCE002', 'Ravi', NULL, 'ECE', NULL),
			('21BCE001', 'Asha', 'Rao', 'CSE', 'asha@example.edu')
	`)
	if err != nil {
		t.Fatalf("Failed to seed students: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestStudentDirectory(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()

	students, err := pool.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(students) != 2 || students[0].RegNo != "21BCE001" {
		t.Fatalf("unexpected students %+v", students)
	}

	ravi, err := pool.GetStudent(ctx, "21BCE002")
	if err != nil || ravi == nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	if ravi.DisplayName() != "Ravi" {
		t.Errorf("expected 'Ravi', got %q", ravi.DisplayName())
	}

	missing, err := pool.GetStudent(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, got %+v %v", missing, err)
	}
}
