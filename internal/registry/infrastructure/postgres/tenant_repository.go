package postgres

import (
	"context"
	"database/sql"
	"errors"

	registry "sensegrid-cloud/internal/registry/domain"
)

// TenantRepository is a Postgres implementation for tenants.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository constructs a repository.
func NewTenantRepository(db *sql.DB) (*TenantRepository, error) {
	if db == nil {
		return nil, errors.New("tenant repo: nil db")
	}
	return &TenantRepository{db: db}, nil
}

// Create inserts a tenant.
func (r *TenantRepository) Create(ctx context.Context, tenant registry.Tenant) error {
	if r == nil || r.db == nil {
		return errors.New("tenant repo: nil db")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}

	query := `
INSERT INTO tenants (
	id,
	name,
	slug,
	created_at
) VALUES (
	$1, $2, $3, $4
)`

	_, err := r.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.CreatedAt.UTC())
	return err
}

// Get loads a tenant by id.
func (r *TenantRepository) Get(ctx context.Context, id string) (*registry.Tenant, error) {
	return r.getBy(ctx, "id", id)
}

// GetBySlug loads a tenant by slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*registry.Tenant, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *TenantRepository) getBy(ctx context.Context, column, value string) (*registry.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tenant repo: nil db")
	}
	if value == "" {
		return nil, errors.New("tenant repo: empty " + column)
	}

	query := `
SELECT id, name, slug, created_at
FROM tenants
WHERE ` + column + ` = $1
LIMIT 1`

	var tenant registry.Tenant
	if err := r.db.QueryRowContext(ctx, query, value).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Slug,
		&tenant.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrNotFound
		}
		return nil, err
	}
	tenant.CreatedAt = tenant.CreatedAt.UTC()
	return &tenant, nil
}
