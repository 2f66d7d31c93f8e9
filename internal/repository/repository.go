package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/certification-service/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing one")
)

const (
	pgErrUniqueViolation           = "23505"
	pgErrInvalidTextRepresentation = "22P02"
	defaultListLimit               = 50
	maxListLimit                   = 500
)

// UserFilter narrows user listings.
type UserFilter struct {
	Roles       []domain.Role
	Affiliation *domain.Affiliation
	Limit       int
	Offset      int
}

// InvitationFilter narrows invitation listings.
type InvitationFilter struct {
	Scope  *domain.Affiliation
	Email  *string
	Status *domain.InvitationStatus
	Limit  int
	Offset int
}

// CreationRequestFilter narrows creation request listings.
type CreationRequestFilter struct {
	Kind    *domain.EntityKind
	Status  *domain.RequestStatus
	GuestID *string
	Limit   int
	Offset  int
}

// AuditRequestFilter narrows audit request listings.
type AuditRequestFilter struct {
	OrganizationID      *string
	CertificationBodyID *string
	Status              *domain.RequestStatus
	Limit               int
	Offset              int
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Status              *domain.AuditStatus
	OrganizationID      *string
	CertificationBodyID *string
	ScheduledFrom       *time.Time
	ScheduledTo         *time.Time
	Limit               int
	Offset              int
}

// CertificationFilter narrows certification listings.
type CertificationFilter struct {
	OrganizationID      *string
	CertificationBodyID *string
	Status              *domain.CertificationStatus
	Limit               int
	Offset              int
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetByName(ctx context.Context, name string) (*domain.Organization, error)
	List(ctx context.Context, limit, offset int) ([]domain.Organization, error)
}

type CertificationBodyRepository interface {
	Create(ctx context.Context, cb *domain.CertificationBody) error
	GetByID(ctx context.Context, id string) (*domain.CertificationBody, error)
	GetByName(ctx context.Context, name string) (*domain.CertificationBody, error)
	List(ctx context.Context, limit, offset int) ([]domain.CertificationBody, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	Update(ctx context.Context, inv *domain.Invitation) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	// GetPending loads an invitation by id and token that is still pending.
	GetPending(ctx context.Context, id, token string) (*domain.Invitation, error)
	List(ctx context.Context, filter InvitationFilter) ([]domain.Invitation, error)
}

type CreationRequestRepository interface {
	Create(ctx context.Context, req *domain.CreationRequest) error
	Update(ctx context.Context, req *domain.CreationRequest) error
	GetByID(ctx context.Context, id string) (*domain.CreationRequest, error)
	List(ctx context.Context, filter CreationRequestFilter) ([]domain.CreationRequest, error)
}

type AuditRequestRepository interface {
	Create(ctx context.Context, req *domain.AuditRequest) error
	Update(ctx context.Context, req *domain.AuditRequest) error
	GetByID(ctx context.Context, id string) (*domain.AuditRequest, error)
	List(ctx context.Context, filter AuditRequestFilter) ([]domain.AuditRequest, error)
}

type AuditRepository interface {
	Create(ctx context.Context, audit *domain.Audit) error
	Update(ctx context.Context, audit *domain.Audit) error
	GetByID(ctx context.Context, id string) (*domain.Audit, error)
	List(ctx context.Context, filter AuditFilter) ([]domain.Audit, error)
}

type CertificationRepository interface {
	Create(ctx context.Context, cert *domain.Certification) error
	Update(ctx context.Context, cert *domain.Certification) error
	GetByID(ctx context.Context, id string) (*domain.Certification, error)
	GetByAuditID(ctx context.Context, auditID string) (*domain.Certification, error)
	List(ctx context.Context, filter CertificationFilter) ([]domain.Certification, error)
}

type RevokedTokenRepository interface {
	Create(ctx context.Context, token *domain.RevokedToken) error
	Exists(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Store is the entity store: every repository plus transactional scoping.
type Store interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	CertificationBodies() CertificationBodyRepository
	Invitations() InvitationRepository
	CreationRequests() CreationRequestRepository
	AuditRequests() AuditRequestRepository
	Audits() AuditRepository
	Certifications() CertificationRepository
	RevokedTokens() RevokedTokenRepository

	// WithTx runs fn against a transactional view of the store. The transaction
	// commits when fn returns nil and rolls back otherwise. Nested calls reuse
	// the enclosing transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresStore struct {
	pool *pgxpool.Pool
	db   dbtx
	inTx bool
}

// NewPostgresStore returns a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, db: pool}
}

func (s *postgresStore) Users() UserRepository { return &userRepository{db: s.db} }
func (s *postgresStore) Organizations() OrganizationRepository {
	return &organizationRepository{db: s.db}
}
func (s *postgresStore) CertificationBodies() CertificationBodyRepository {
	return &certificationBodyRepository{db: s.db}
}
func (s *postgresStore) Invitations() InvitationRepository { return &invitationRepository{db: s.db} }
func (s *postgresStore) CreationRequests() CreationRequestRepository {
	return &creationRequestRepository{db: s.db}
}
func (s *postgresStore) AuditRequests() AuditRequestRepository {
	return &auditRequestRepository{db: s.db}
}
func (s *postgresStore) Audits() AuditRepository { return &auditRepository{db: s.db} }
func (s *postgresStore) Certifications() CertificationRepository {
	return &certificationRepository{db: s.db}
}
func (s *postgresStore) RevokedTokens() RevokedTokenRepository {
	return &revokedTokenRepository{db: s.db}
}

func (s *postgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&postgresStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapError(err))
	}
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgErrInvalidTextRepresentation:
			// a malformed uuid cannot name an existing row
			return ErrNotFound
		}
	}
	return err
}

// NormalizePage applies the default and maximum page sizes shared by every driver.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
