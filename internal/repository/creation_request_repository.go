package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const creationRequestColumns = `id, kind, guest_id, name, address, contact_email, contact_phone, description, status, admin_comment, entity_id, created_at, updated_at`

type creationRequestRepository struct {
	db dbtx
}

func (r *creationRequestRepository) Create(ctx context.Context, req *domain.CreationRequest) error {
	const query = `
        INSERT INTO creation_requests (id, kind, guest_id, name, address, contact_email, contact_phone, description, status, admin_comment, entity_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.Kind,
		req.GuestID,
		req.Name,
		req.Address,
		req.ContactEmail,
		req.ContactPhone,
		req.Description,
		req.Status,
		req.AdminComment,
		req.EntityID,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	return mapError(err)
}

func (r *creationRequestRepository) Update(ctx context.Context, req *domain.CreationRequest) error {
	const query = `
        UPDATE creation_requests SET status=$1, admin_comment=$2, entity_id=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, req.Status, req.AdminComment, req.EntityID, req.ID).Scan(&req.UpdatedAt)
	return mapError(err)
}

func (r *creationRequestRepository) GetByID(ctx context.Context, id string) (*domain.CreationRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+creationRequestColumns+` FROM creation_requests WHERE id=$1`, id)
	if err != nil {
		return nil, mapError(err)
	}
	requests, err := scanCreationRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, ErrNotFound
	}
	return &requests[0], nil
}

func (r *creationRequestRepository) List(ctx context.Context, filter CreationRequestFilter) ([]domain.CreationRequest, error) {
	clauses := []string{}
	args := []any{}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.GuestID != nil {
		args = append(args, *filter.GuestID)
		clauses = append(clauses, fmt.Sprintf("guest_id=$%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := `SELECT ` + creationRequestColumns + ` FROM creation_requests`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanCreationRequests(rows)
}

func scanCreationRequests(rows pgx.Rows) ([]domain.CreationRequest, error) {
	defer rows.Close()

	var requests []domain.CreationRequest
	for rows.Next() {
		var req domain.CreationRequest
		if err := rows.Scan(
			&req.ID,
			&req.Kind,
			&req.GuestID,
			&req.Name,
			&req.Address,
			&req.ContactEmail,
			&req.ContactPhone,
			&req.Description,
			&req.Status,
			&req.AdminComment,
			&req.EntityID,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, mapError(rows.Err())
}
