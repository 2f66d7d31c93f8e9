package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/catalog"
	"github.com/spec-kit/certification-service/internal/certificate"
	"github.com/spec-kit/certification-service/internal/config"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/notify"
	"github.com/spec-kit/certification-service/internal/observability"
	"github.com/spec-kit/certification-service/internal/repository/memstore"
	"github.com/spec-kit/certification-service/internal/worker"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

const testPassword = "correct-horse-battery"

var errSMTPDown = errors.New("smtp relay unreachable")

// testClock is a settable time source shared by the store, the codec and the services.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	clock   *testClock
	store   *memstore.Store
	sender  *notify.RecordingSender
	codec   *auth.Codec
	catalog *catalog.MemoryCatalog
	metrics *observability.Metrics

	auth        *AuthService
	invitations *InvitationService
	requests    *CreationRequestService
	audits      *AuditService
	certs       *CertificationService
	directory   *DirectoryService
	standards   *StandardsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	store := memstore.New(clock.Now)
	sender := &notify.RecordingSender{}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	worker.StartNotificationWorker(dispatcher, NewNotificationService(store, sender, zap.NewNop(), "http://frontend.test"), metrics, zap.NewNop())

	codec := auth.NewCodec("token-secret", clock.Now)
	cat := catalog.NewMemoryCatalog(
		domain.Standard{ID: "std-9001", Iso: "ISO 9001:2015", Category: "Quality", Description: "Quality management systems", IsActive: true},
		domain.Standard{ID: "std-14001", Iso: "ISO 14001:2015", Category: "Environment", Description: "Environmental management systems", IsActive: true},
		domain.Standard{ID: "std-27001", Iso: "ISO/IEC 27001:2022", Category: "Security", Description: "Information security management", IsActive: true},
	)

	deps := Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     zap.NewNop(),
		Now:        clock.Now,
	}
	authCfg := config.AuthConfig{
		BcryptCost:          bcrypt.MinCost,
		ConfirmationMaxAge:  time.Hour,
		PasswordResetMaxAge: time.Hour,
		InvitationTTL:       domain.InvitationTTL,
	}

	return &fixture{
		t:       t,
		ctx:     context.Background(),
		clock:   clock,
		store:   store,
		sender:  sender,
		codec:   codec,
		catalog: cat,
		metrics: metrics,
		auth: NewAuthService(AuthDependencies{
			Dependencies: deps,
			Tokens:       auth.NewTokenManager("jwt-secret", time.Hour, 24*time.Hour),
			Codec:        codec,
			Revocations:  auth.NewRevocationList(store.RevokedTokens(), nil, zap.NewNop()),
			Config:       authCfg,
		}),
		invitations: NewInvitationService(InvitationDependencies{Dependencies: deps, Codec: codec}),
		requests:    NewCreationRequestService(deps),
		audits:      NewAuditService(AuditDependencies{Dependencies: deps, Catalog: cat}),
		certs: NewCertificationService(CertificationDependencies{
			Dependencies: deps,
			Renderer:     certificate.NewPDFRenderer(t.TempDir()),
		}),
		directory: NewDirectoryService(deps),
		standards: NewStandardsService(deps, cat),
	}
}

// user stores a confirmed account directly.
func (f *fixture) user(email string, role domain.Role, aff domain.Affiliation) *domain.User {
	f.t.Helper()
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(f.t, err)
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.Split(email, "@")[0],
		Role:         role,
		Affiliation:  aff,
		IsConfirmed:  true,
	}
	require.NoError(f.t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) guest(email string) *domain.User {
	return f.user(email, domain.RoleGuest, domain.Unaffiliated())
}

// orgManager creates an organization together with its manager.
func (f *fixture) orgManager(name string) (*domain.User, string) {
	f.t.Helper()
	id := uuid.NewString()
	require.NoError(f.t, f.store.Organizations().Create(f.ctx, &domain.Organization{ID: id, Name: name, ContactEmail: "info@" + slug(name) + ".test"}))
	return f.user("manager@"+slug(name)+".test", domain.RoleManager, domain.OfOrganization(id)), id
}

// cbManager creates a certification body together with its manager.
func (f *fixture) cbManager(name string) (*domain.User, string) {
	f.t.Helper()
	id := uuid.NewString()
	require.NoError(f.t, f.store.CertificationBodies().Create(f.ctx, &domain.CertificationBody{ID: id, Name: name}))
	return f.user("manager@"+slug(name)+".test", domain.RoleManager, domain.OfCertificationBody(id)), id
}

func (f *fixture) reload(id string) *domain.User {
	f.t.Helper()
	u, err := f.store.Users().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return u
}

func slug(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}
