package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

// Organizations and certification bodies share a table shape.
const partyColumns = `id, name, address, contact_email, contact_phone, created_at, updated_at`

type organizationRepository struct {
	db dbtx
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (id, name, address, contact_email, contact_phone)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, org.ID, org.Name, org.Address, org.ContactEmail, org.ContactPhone).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	return mapError(err)
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	return r.fetchSingle(ctx, `SELECT `+partyColumns+` FROM organizations WHERE id=$1`, id)
}

func (r *organizationRepository) GetByName(ctx context.Context, name string) (*domain.Organization, error) {
	return r.fetchSingle(ctx, `SELECT `+partyColumns+` FROM organizations WHERE lower(name)=lower($1)`, name)
}

func (r *organizationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&org.ID, &org.Name, &org.Address, &org.ContactEmail, &org.ContactPhone, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &org, nil
}

func (r *organizationRepository) List(ctx context.Context, limit, offset int) ([]domain.Organization, error) {
	limit, offset = NormalizePage(limit, offset)
	rows, err := r.db.Query(ctx, `SELECT `+partyColumns+` FROM organizations ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Organization, error) {
		var org domain.Organization
		err := row.Scan(&org.ID, &org.Name, &org.Address, &org.ContactEmail, &org.ContactPhone, &org.CreatedAt, &org.UpdatedAt)
		return org, err
	})
}

type certificationBodyRepository struct {
	db dbtx
}

func (r *certificationBodyRepository) Create(ctx context.Context, cb *domain.CertificationBody) error {
	const query = `
        INSERT INTO certification_bodies (id, name, address, contact_email, contact_phone)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, cb.ID, cb.Name, cb.Address, cb.ContactEmail, cb.ContactPhone).
		Scan(&cb.CreatedAt, &cb.UpdatedAt)
	return mapError(err)
}

func (r *certificationBodyRepository) GetByID(ctx context.Context, id string) (*domain.CertificationBody, error) {
	return r.fetchSingle(ctx, `SELECT `+partyColumns+` FROM certification_bodies WHERE id=$1`, id)
}

func (r *certificationBodyRepository) GetByName(ctx context.Context, name string) (*domain.CertificationBody, error) {
	return r.fetchSingle(ctx, `SELECT `+partyColumns+` FROM certification_bodies WHERE lower(name)=lower($1)`, name)
}

func (r *certificationBodyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.CertificationBody, error) {
	var cb domain.CertificationBody
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&cb.ID, &cb.Name, &cb.Address, &cb.ContactEmail, &cb.ContactPhone, &cb.CreatedAt, &cb.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &cb, nil
}

func (r *certificationBodyRepository) List(ctx context.Context, limit, offset int) ([]domain.CertificationBody, error) {
	limit, offset = NormalizePage(limit, offset)
	rows, err := r.db.Query(ctx, `SELECT `+partyColumns+` FROM certification_bodies ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CertificationBody, error) {
		var cb domain.CertificationBody
		err := row.Scan(&cb.ID, &cb.Name, &cb.Address, &cb.ContactEmail, &cb.ContactPhone, &cb.CreatedAt, &cb.UpdatedAt)
		return cb, err
	})
}
