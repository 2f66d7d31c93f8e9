package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const certificationColumns = `id, certificate_number, audit_id, organization_id, certification_body_id, issuer_id, issued_date, status, artifact_ref,
    recipient_name, organization_name, standard, compliance_status, created_at, updated_at`

type certificationRepository struct {
	db dbtx
}

func (r *certificationRepository) Create(ctx context.Context, cert *domain.Certification) error {
	const query = `
        INSERT INTO certifications (id, certificate_number, audit_id, organization_id, certification_body_id, issuer_id, issued_date,
            status, artifact_ref, recipient_name, organization_name, standard, compliance_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		cert.ID,
		cert.CertificateNumber,
		cert.AuditID,
		cert.OrganizationID,
		cert.CertificationBodyID,
		cert.IssuerID,
		cert.IssuedDate,
		cert.Status,
		cert.ArtifactRef,
		cert.Details.RecipientName,
		cert.Details.OrganizationName,
		cert.Details.Standard,
		cert.Details.ComplianceStatus,
	).Scan(&cert.CreatedAt, &cert.UpdatedAt)
	return mapError(err)
}

func (r *certificationRepository) Update(ctx context.Context, cert *domain.Certification) error {
	const query = `
        UPDATE certifications SET status=$1, artifact_ref=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, cert.Status, cert.ArtifactRef, cert.ID).Scan(&cert.UpdatedAt)
	return mapError(err)
}

func (r *certificationRepository) GetByID(ctx context.Context, id string) (*domain.Certification, error) {
	return r.fetchSingle(ctx, `SELECT `+certificationColumns+` FROM certifications WHERE id=$1`, id)
}

func (r *certificationRepository) GetByAuditID(ctx context.Context, auditID string) (*domain.Certification, error) {
	return r.fetchSingle(ctx, `SELECT `+certificationColumns+` FROM certifications WHERE audit_id=$1`, auditID)
}

func (r *certificationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Certification, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	certs, err := scanCertifications(rows)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, ErrNotFound
	}
	return &certs[0], nil
}

func (r *certificationRepository) List(ctx context.Context, filter CertificationFilter) ([]domain.Certification, error) {
	clauses := []string{}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.CertificationBodyID != nil {
		args = append(args, *filter.CertificationBodyID)
		clauses = append(clauses, fmt.Sprintf("certification_body_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := `SELECT ` + certificationColumns + ` FROM certifications`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY issued_date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanCertifications(rows)
}

func scanCertifications(rows pgx.Rows) ([]domain.Certification, error) {
	defer rows.Close()

	var certs []domain.Certification
	for rows.Next() {
		var cert domain.Certification
		if err := rows.Scan(
			&cert.ID,
			&cert.CertificateNumber,
			&cert.AuditID,
			&cert.OrganizationID,
			&cert.CertificationBodyID,
			&cert.IssuerID,
			&cert.IssuedDate,
			&cert.Status,
			&cert.ArtifactRef,
			&cert.Details.RecipientName,
			&cert.Details.OrganizationName,
			&cert.Details.Standard,
			&cert.Details.ComplianceStatus,
			&cert.CreatedAt,
			&cert.UpdatedAt,
		); err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, mapError(rows.Err())
}

type revokedTokenRepository struct {
	db dbtx
}

func (r *revokedTokenRepository) Create(ctx context.Context, token *domain.RevokedToken) error {
	const query = `
        INSERT INTO revoked_tokens (id, jti, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (jti) DO NOTHING
        RETURNING revoked_at`

	err := r.db.QueryRow(ctx, query, token.ID, token.JTI, token.ExpiresAt).Scan(&token.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// already revoked
		return nil
	}
	return mapError(err)
}

func (r *revokedTokenRepository) Exists(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti=$1)`, jti).Scan(&exists)
	return exists, err
}

func (r *revokedTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
