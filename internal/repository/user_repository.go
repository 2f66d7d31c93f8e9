package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/certification-service/internal/domain"
)

const userColumns = `id, email, password_hash, full_name, role, organization_id, certification_body_id, is_confirmed, created_at, updated_at`

type userRepository struct {
	db dbtx
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, password_hash, full_name, role, organization_id, certification_body_id, is_confirmed)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	orgID, cbID := user.Affiliation.Columns()
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		orgID,
		cbID,
		user.IsConfirmed,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, password_hash=$2, full_name=$3, role=$4,
            organization_id=$5, certification_body_id=$6, is_confirmed=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	orgID, cbID := user.Affiliation.Columns()
	err := r.db.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		orgID,
		cbID,
		user.IsConfirmed,
		user.ID,
	).Scan(&user.UpdatedAt)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, domain.NormalizeEmail(email))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{}
	args := []any{}

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Affiliation != nil {
		orgID, cbID := filter.Affiliation.Columns()
		clauses = append(clauses, affiliationClause(&args, orgID, cbID)...)
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query := `SELECT ` + userColumns + ` FROM users`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			user        domain.User
			orgID, cbID *string
		)
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.FullName,
			&user.Role,
			&orgID,
			&cbID,
			&user.IsConfirmed,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		aff, err := domain.AffiliationFromColumns(orgID, cbID)
		if err != nil {
			return nil, err
		}
		user.Affiliation = aff
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

// affiliationClause renders an exact match on both scope columns.
func affiliationClause(args *[]any, orgID, cbID *string) []string {
	clauses := make([]string, 0, 2)
	if orgID != nil {
		*args = append(*args, *orgID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(*args)))
	} else {
		clauses = append(clauses, "organization_id IS NULL")
	}
	if cbID != nil {
		*args = append(*args, *cbID)
		clauses = append(clauses, fmt.Sprintf("certification_body_id=$%d", len(*args)))
	} else {
		clauses = append(clauses, "certification_body_id IS NULL")
	}
	return clauses
}
