package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/observability"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

// Dependencies bundles the collaborators shared by every workflow service.
type Dependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result is the outcome of a committed transition. NotificationFailed is set
// when the state change went through but a notification could not be delivered.
type Result[T any] struct {
	Value              T
	NotificationFailed bool
}

// Page bounds list queries.
type Page struct {
	Limit  int
	Offset int
}

type base struct {
	store      repository.Store
	gate       *auth.Gate
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func newBase(deps Dependencies) base {
	b := base{
		store:      deps.Store,
		gate:       auth.NewGate(deps.Store.Users()),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// clock returns the current time truncated for storage.
func (b base) clock() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

// publishEvent runs the notification handlers for event and reports whether
// any of them failed. Failures never undo the committed change.
func (b base) publishEvent(ctx context.Context, event events.Event) bool {
	if b.dispatcher == nil {
		return false
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.clock()
	}
	if err := b.dispatcher.Publish(ctx, event); err != nil {
		b.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
		return true
	}
	return false
}

func (b base) transition(entity, name string) {
	b.metrics.RecordTransition(entity, name)
}

// scopeName resolves the display name of an organization or certification body.
func (b base) scopeName(ctx context.Context, store repository.Store, scope domain.Affiliation) (string, error) {
	if id, ok := scope.OrganizationID(); ok {
		org, err := store.Organizations().GetByID(ctx, id)
		if err != nil {
			return "", storeError(err, "organization")
		}
		return org.Name, nil
	}
	if id, ok := scope.CertificationBodyID(); ok {
		cb, err := store.CertificationBodies().GetByID(ctx, id)
		if err != nil {
			return "", storeError(err, "certification body")
		}
		return cb.Name, nil
	}
	return "", nil
}

// storeError translates repository sentinels into domain errors. Domain errors
// pass through untouched.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" already exists", nil)
	}
	return apperrors.NewInternalError(err)
}

// scopeOf returns the caller's affiliation when it is of kind, and Forbidden otherwise.
func scopeOf(user *domain.User, kind domain.EntityKind) (domain.Affiliation, error) {
	aff := user.Affiliation
	switch kind {
	case domain.EntityOrganization:
		if _, ok := aff.OrganizationID(); ok {
			return aff, nil
		}
		return domain.Affiliation{}, apperrors.NewForbidden("caller is not affiliated with an organization")
	case domain.EntityCertificationBody:
		if _, ok := aff.CertificationBodyID(); ok {
			return aff, nil
		}
		return domain.Affiliation{}, apperrors.NewForbidden("caller is not affiliated with a certification body")
	}
	return domain.Affiliation{}, apperrors.NewBadRequest("unknown entity kind")
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func ptr[T any](v T) *T { return &v }

// scopedFilter narrows list filters to what user may see. Admins see everything;
// affiliated users only their own organization or certification body.
func scopedFilter(user *domain.User, orgID, cbID *string) (*string, *string, error) {
	if user.Role == domain.RoleAdmin {
		return orgID, cbID, nil
	}
	if id, ok := user.Affiliation.OrganizationID(); ok {
		if orgID != nil && *orgID != id {
			return nil, nil, apperrors.NewForbidden("organization is outside the caller's scope")
		}
		return &id, cbID, nil
	}
	if id, ok := user.Affiliation.CertificationBodyID(); ok {
		if cbID != nil && *cbID != id {
			return nil, nil, apperrors.NewForbidden("certification body is outside the caller's scope")
		}
		return orgID, &id, nil
	}
	return nil, nil, apperrors.NewForbidden("caller is not affiliated")
}

// canSee reports whether user is an admin or belongs to one of the two parties.
func canSee(user *domain.User, orgID, cbID string) bool {
	if user.Role == domain.RoleAdmin {
		return true
	}
	if id, ok := user.Affiliation.OrganizationID(); ok && id == orgID {
		return true
	}
	id, ok := user.Affiliation.CertificationBodyID()
	return ok && id == cbID
}
