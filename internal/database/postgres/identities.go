package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository provides PostgreSQL-backed storage of enrolled face embeddings.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// ListIdentities returns every enrolled identity ordered by registration number.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reg_no, display_name, embedding, dim, updated_at
		FROM identities
		ORDER BY reg_no
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.StoredIdentity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// GetIdentity retrieves an identity by registration number, returns nil if not found.
func (r *IdentityRepository) GetIdentity(ctx context.Context, regNo string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT reg_no, display_name, embedding, dim, updated_at
		FROM identities
		WHERE reg_no = $1
	`, regNo)

	id, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// CountIdentities returns the number of enrolled identities.
func (r *IdentityRepository) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// UpsertIdentity inserts or overwrites an identity in a single statement.
func (r *IdentityRepository) UpsertIdentity(ctx context.Context, identity database.StoredIdentity) error {
	vec := pgvector.NewVector(identity.Embedding)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO identities (reg_no, display_name, embedding, dim, updated_at)
		VALUES ($1, $2, $3::vector, $4, NOW())
		ON CONFLICT (reg_no) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			updated_at = NOW()
	`, identity.RegNo, identity.DisplayName, vec, len(identity.Embedding))
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// DeleteIdentity removes an identity and reports whether it existed.
func (r *IdentityRepository) DeleteIdentity(ctx context.Context, regNo string) (bool, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE reg_no = $1", regNo)
	if err != nil {
		return false, fmt.Errorf("delete identity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

func scanIdentity(scanner interface{ Scan(...any) error }) (database.StoredIdentity, error) {
	var id database.StoredIdentity
	var vec pgvector.Vector
	var updatedAt sql.NullTime

	if err := scanner.Scan(&id.RegNo, &id.DisplayName, &vec, &id.Dim, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id, err
		}
		return id, fmt.Errorf("scan identity: %w", err)
	}
	id.Embedding = vec.Slice()
	if updatedAt.Valid {
		id.UpdatedAt = updatedAt.Time
	}
	return id, nil
}
