package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const invitationColumns = `id, email, role, organization_id, certification_body_id, invited_by_id, token, expires_at, is_used, status, responded_at, created_at`

type invitationRepository struct {
	db dbtx
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	const query = `
        INSERT INTO invitations (id, email, role, organization_id, certification_body_id, invited_by_id, token, expires_at, is_used, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING created_at`

	orgID, cbID := inv.Scope.Columns()
	err := r.db.QueryRow(ctx, query,
		inv.ID,
		inv.Email,
		inv.Role,
		orgID,
		cbID,
		inv.InvitedByID,
		inv.Token,
		inv.ExpiresAt,
		inv.IsUsed,
		inv.Status,
	).Scan(&inv.CreatedAt)
	return mapError(err)
}

func (r *invitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	const query = `
        UPDATE invitations SET token=$1, expires_at=$2, is_used=$3, status=$4, responded_at=$5
        WHERE id=$6`

	tag, err := r.db.Exec(ctx, query, inv.Token, inv.ExpiresAt, inv.IsUsed, inv.Status, inv.RespondedAt, inv.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invitationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invitations WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	return r.fetchSingle(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id=$1`, id)
}

func (r *invitationRepository) GetPending(ctx context.Context, id, token string) (*domain.Invitation, error) {
	return r.fetchSingle(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id=$1 AND token=$2 AND status='pending' AND is_used=false`,
		id, token)
}

func (r *invitationRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Invitation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	invitations, err := scanInvitations(rows)
	if err != nil {
		return nil, err
	}
	if len(invitations) == 0 {
		return nil, ErrNotFound
	}
	return &invitations[0], nil
}

func (r *invitationRepository) List(ctx context.Context, filter InvitationFilter) ([]domain.Invitation, error) {
	clauses := []string{}
	args := []any{}

	if filter.Scope != nil {
		orgID, cbID := filter.Scope.Columns()
		clauses = append(clauses, affiliationClause(&args, orgID, cbID)...)
	}
	if filter.Email != nil {
		args = append(args, domain.NormalizeEmail(*filter.Email))
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := `SELECT ` + invitationColumns + ` FROM invitations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanInvitations(rows)
}

func scanInvitations(rows pgx.Rows) ([]domain.Invitation, error) {
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		var (
			inv         domain.Invitation
			orgID, cbID *string
		)
		if err := rows.Scan(
			&inv.ID,
			&inv.Email,
			&inv.Role,
			&orgID,
			&cbID,
			&inv.InvitedByID,
			&inv.Token,
			&inv.ExpiresAt,
			&inv.IsUsed,
			&inv.Status,
			&inv.RespondedAt,
			&inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		scope, err := domain.AffiliationFromColumns(orgID, cbID)
		if err != nil {
			return nil, err
		}
		inv.Scope = scope
		invitations = append(invitations, inv)
	}
	return invitations, mapError(rows.Err())
}
