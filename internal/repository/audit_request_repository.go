package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const auditRequestColumns = `id, name, organization_id, certification_body_id, requested_by_id, standard_ids, scheduled_date, status, decided_by_id, comment, audit_id, created_at, updated_at`

type auditRequestRepository struct {
	db dbtx
}

func (r *auditRequestRepository) Create(ctx context.Context, req *domain.AuditRequest) error {
	const query = `
        INSERT INTO audit_requests (id, name, organization_id, certification_body_id, requested_by_id, standard_ids, scheduled_date, status, comment)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.Name,
		req.OrganizationID,
		req.CertificationBodyID,
		req.RequestedByID,
		req.StandardIDs,
		req.ScheduledDate,
		req.Status,
		req.Comment,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	return mapError(err)
}

func (r *auditRequestRepository) Update(ctx context.Context, req *domain.AuditRequest) error {
	const query = `
        UPDATE audit_requests SET status=$1, decided_by_id=$2, comment=$3, audit_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, req.Status, req.DecidedByID, req.Comment, req.AuditID, req.ID).Scan(&req.UpdatedAt)
	return mapError(err)
}

func (r *auditRequestRepository) GetByID(ctx context.Context, id string) (*domain.AuditRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+auditRequestColumns+` FROM audit_requests WHERE id=$1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	requests, err := scanAuditRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ErrNotFound
	}
	return &requests[0], nil
}

func (r *auditRequestRepository) List(ctx context.Context, filter AuditRequestFilter) ([]domain.AuditRequest, error) {
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
	query := `SELECT ` + auditRequestColumns + ` FROM audit_requests`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanAuditRequests(rows)
}

func scanAuditRequests(rows pgx.Rows) ([]domain.AuditRequest, error) {
	defer rows.Close()

	var requests []domain.AuditRequest
	for rows.Next() {
		var req domain.AuditRequest
		if err := rows.Scan(
			&req.ID,
			&req.Name,
			&req.OrganizationID,
			&req.CertificationBodyID,
			&req.RequestedByID,
			&req.StandardIDs,
			&req.ScheduledDate,
			&req.Status,
			&req.DecidedByID,
			&req.Comment,
			&req.AuditID,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, mapError(rows.Err())
}
