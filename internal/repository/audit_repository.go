package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const auditColumns = `id, name, organization_id, certification_body_id, manager_id, audit_request_id, scheduled_date, status, checklist, created_at, updated_at`

type auditRepository struct {
	db dbtx
}

func (r *auditRepository) Create(ctx context.Context, audit *domain.Audit) error {
	const query = `
        INSERT INTO audits (id, name, organization_id, certification_body_id, manager_id, audit_request_id, scheduled_date, status, checklist)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
        RETURNING created_at, updated_at`

	checklist, err := marshalChecklist(audit.Checklist)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		audit.ID,
		audit.Name,
		audit.OrganizationID,
		audit.CertificationBodyID,
		audit.ManagerID,
		audit.AuditRequestID,
		audit.ScheduledDate,
		audit.Status,
		checklist,
	).Scan(&audit.CreatedAt, &audit.UpdatedAt)
	return mapError(err)
}

func (r *auditRepository) Update(ctx context.Context, audit *domain.Audit) error {
	const query = `
        UPDATE audits SET name=$1, scheduled_date=$2, status=$3, checklist=$4::jsonb, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	checklist, err := marshalChecklist(audit.Checklist)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query, audit.Name, audit.ScheduledDate, audit.Status, checklist, audit.ID).
		Scan(&audit.UpdatedAt)
	return mapError(err)
}

func (r *auditRepository) GetByID(ctx context.Context, id string) (*domain.Audit, error) {
	rows, err := r.db.Query(ctx, `SELECT `+auditColumns+` FROM audits WHERE id=$1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	audits, err := scanAudits(rows)
	if err != nil {
		return nil, err
	}
	if len(audits) == 0 {
		return nil, ErrNotFound
	}
	return &audits[0], nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]domain.Audit, error) {
	clauses := []string{}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.CertificationBodyID != nil {
		args = append(args, *filter.CertificationBodyID)
		clauses = append(clauses, fmt.Sprintf("certification_body_id=$%d", len(args)))
	}
	if filter.ScheduledFrom != nil {
		args = append(args, *filter.ScheduledFrom)
		clauses = append(clauses, fmt.Sprintf("scheduled_date >= $%d", len(args)))
	}
	if filter.ScheduledTo != nil {
		args = append(args, *filter.ScheduledTo)
		clauses = append(clauses, fmt.Sprintf("scheduled_date <= $%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := `SELECT ` + auditColumns + ` FROM audits`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY scheduled_date ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanAudits(rows)
}

func marshalChecklist(items []domain.ChecklistItem) (string, error) {
	if items == nil {
		items = []domain.ChecklistItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode checklist: %w", err)
	}
	return string(raw), nil
}

func scanAudits(rows pgx.Rows) ([]domain.Audit, error) {
	defer rows.Close()

	var audits []domain.Audit
	for rows.Next() {
		var (
			audit     domain.Audit
			checklist []byte
		)
		if err := rows.Scan(
			&audit.ID,
			&audit.Name,
			&audit.OrganizationID,
			&audit.CertificationBodyID,
			&audit.ManagerID,
			&audit.AuditRequestID,
			&audit.ScheduledDate,
			&audit.Status,
			&checklist,
			&audit.CreatedAt,
			&audit.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(checklist) > 0 {
			if err := json.Unmarshal(checklist, &audit.Checklist); err != nil {
				return nil, fmt.Errorf("decode checklist: %w", err)
			}
		}
		audits = append(audits, audit)
	}
	return audits, mapError(rows.Err())
}
