package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/certificate"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
	apperrors "github.com/spec-kit/certification-service/pkg/util/errorutil"
)

func (f *fixture) completedAudit(cbManager *domain.User, orgID string) *domain.Audit {
	f.t.Helper()
	audit := f.scheduledAudit(cbManager, orgID, "std-9001", "std-14001")
	completed := string(domain.AuditCompleted)
	res, err := f.audits.UpdateAudit(f.ctx, cbManager.ID, audit.ID, AuditUpdateInput{Status: &completed})
	require.NoError(f.t, err)
	return res.Value
}

func TestIssueCertification(t *testing.T) {
	f := newFixture(t)
	orgManager, orgID := f.orgManager("Acme")
	cbManager, cbID := f.cbManager("Bureau")
	audit := f.completedAudit(cbManager, orgID)

	res, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: audit.ID})
	require.NoError(t, err)
	cert := res.Value
	require.Equal(t, domain.CertificationIssued, cert.Status)
	require.Equal(t, orgID, cert.OrganizationID)
	require.Equal(t, cbID, cert.CertificationBodyID)
	require.Len(t, cert.CertificateNumber, 26)
	require.Equal(t, f.clock.Now(), cert.IssuedDate)
	require.Equal(t, domain.CertificateDetails{
		RecipientName:    "Acme",
		OrganizationName: "Acme",
		Standard:         "ISO 9001:2015, ISO 14001:2015",
		ComplianceStatus: "Compliant",
	}, cert.Details)

	require.Equal(t, certificate.FileName(cert.CertificateNumber), filepath.Base(cert.ArtifactRef))
	info, err := os.Stat(cert.ArtifactRef)
	require.NoError(t, err)
	require.Positive(t, info.Size())
	require.Contains(t, f.sender.SentTo(orgManager.Email), "Certificate issued: "+cert.CertificateNumber)

	t.Run("an audit is certified once", func(t *testing.T) {
		_, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: audit.ID})
		requireCode(t, err, apperrors.CodeConflict)
	})

	t.Run("the organization downloads it", func(t *testing.T) {
		got, err := f.certs.Download(f.ctx, orgManager.ID, cert.ID)
		require.NoError(t, err)
		require.Equal(t, cert.ArtifactRef, got.ArtifactRef)
	})

	t.Run("other organizations cannot", func(t *testing.T) {
		outsider, _ := f.orgManager("Globex")
		_, err := f.certs.Download(f.ctx, outsider.ID, cert.ID)
		requireCode(t, err, apperrors.CodeForbidden)
	})
}

// conflictingStore fails certification inserts as if a concurrent issue won the
// unique audit_id index.
type conflictingStore struct {
	repository.Store
}

func (s conflictingStore) Certifications() repository.CertificationRepository {
	return conflictingCerts{s.Store.Certifications()}
}

type conflictingCerts struct {
	repository.CertificationRepository
}

func (conflictingCerts) Create(context.Context, *domain.Certification) error {
	return repository.ErrConflict
}

func TestIssueCertificationDiscardsArtifactOnInsertFailure(t *testing.T) {
	f := newFixture(t)
	_, orgID := f.orgManager("Acme")
	cbManager, _ := f.cbManager("Bureau")
	audit := f.completedAudit(cbManager, orgID)

	dir := t.TempDir()
	svc := NewCertificationService(CertificationDependencies{
		Dependencies: Dependencies{Store: conflictingStore{f.store}, Logger: zap.NewNop(), Now: f.clock.Now},
		Renderer:     certificate.NewPDFRenderer(dir),
	})
	_, err := svc.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: audit.ID})
	requireCode(t, err, apperrors.CodeConflict)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestIssueCertificationChecks(t *testing.T) {
	f := newFixture(t)
	orgManager, orgID := f.orgManager("Acme")
	cbManager, _ := f.cbManager("Bureau")
	otherCB, _ := f.cbManager("Other Bureau")

	t.Run("audit must be completed", func(t *testing.T) {
		audit := f.scheduledAudit(cbManager, orgID)
		_, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: audit.ID})
		requireCode(t, err, apperrors.CodeBadRequest)
		_, err = f.store.Certifications().GetByAuditID(f.ctx, audit.ID)
		require.Error(t, err)
	})

	audit := f.completedAudit(cbManager, orgID)

	t.Run("another body cannot certify", func(t *testing.T) {
		_, err := f.certs.Issue(f.ctx, otherCB.ID, IssueCertificationInput{AuditID: audit.ID})
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("organizations cannot certify themselves", func(t *testing.T) {
		_, err := f.certs.Issue(f.ctx, orgManager.ID, IssueCertificationInput{AuditID: audit.ID})
		requireCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("unknown audit", func(t *testing.T) {
		_, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: "missing"})
		requireCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("explicit details are kept", func(t *testing.T) {
		res, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{
			AuditID: audit.ID,
			Details: domain.CertificateDetails{RecipientName: " Jane Roe ", Standard: "ISO 9001:2015"},
		})
		require.NoError(t, err)
		require.Equal(t, "Jane Roe", res.Value.Details.RecipientName)
		require.Equal(t, "ISO 9001:2015", res.Value.Details.Standard)
		require.Equal(t, "Acme", res.Value.Details.OrganizationName)
	})
}

func TestRevokeCertification(t *testing.T) {
	f := newFixture(t)
	orgManager, orgID := f.orgManager("Acme")
	cbManager, _ := f.cbManager("Bureau")
	otherCB, _ := f.cbManager("Other Bureau")
	issued, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: f.completedAudit(cbManager, orgID).ID})
	require.NoError(t, err)
	cert := issued.Value

	_, err = f.certs.Revoke(f.ctx, otherCB.ID, cert.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	res, err := f.certs.Revoke(f.ctx, cbManager.ID, cert.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CertificationRevoked, res.Value.Status)
	require.Contains(t, f.sender.SentTo(orgManager.Email), "Certificate revoked: "+cert.CertificateNumber)

	_, err = f.certs.Revoke(f.ctx, cbManager.ID, cert.ID)
	requireCode(t, err, apperrors.CodeBadRequest)

	_, err = f.certs.Download(f.ctx, orgManager.ID, cert.ID)
	requireCode(t, err, apperrors.CodeBadRequest)

	got, err := f.certs.Get(f.ctx, orgManager.ID, cert.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CertificationRevoked, got.Status)
}

func TestListCertifications(t *testing.T) {
	f := newFixture(t)
	acmeManager, acmeID := f.orgManager("Acme")
	_, globexID := f.orgManager("Globex")
	cbManager, _ := f.cbManager("Bureau")
	for _, orgID := range []string{acmeID, globexID} {
		_, err := f.certs.Issue(f.ctx, cbManager.ID, IssueCertificationInput{AuditID: f.completedAudit(cbManager, orgID).ID})
		require.NoError(t, err)
	}

	mine, err := f.certs.List(f.ctx, acmeManager.ID, CertificationListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, acmeID, mine[0].OrganizationID)

	issuedByBody, err := f.certs.List(f.ctx, cbManager.ID, CertificationListFilter{})
	require.NoError(t, err)
	require.Len(t, issuedByBody, 2)

	revoked := domain.CertificationRevoked
	none, err := f.certs.List(f.ctx, cbManager.ID, CertificationListFilter{Status: &revoked})
	require.NoError(t, err)
	require.Empty(t, none)
}
