package certificate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/certification-service/internal/domain"
)

func TestPDFRendererWritesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(dir)

	ref, err := r.Render(context.Background(), Document{
		CertificateNumber: "01HZX",
		IssuedDate:        "2024-05-01",
		IssuerBody:        "Certifiers Ltd",
		Details: domain.CertificateDetails{
			RecipientName:    "Jane Doe",
			OrganizationName: "Acme",
			Standard:         "ISO 9001:2015",
			ComplianceStatus: "compliant",
		},
		Checklist: []domain.ChecklistItem{{Standard: "ISO 9001:2015", ComplianceStatus: true}},
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Certificate_01HZX.pdf"), ref)

	raw, err := os.ReadFile(ref)
	require.NoError(t, err)
	require.True(t, len(raw) > 4)
	require.Equal(t, "%PDF", string(raw[:4]))
}

func TestPDFRendererDiscard(t *testing.T) {
	r := NewPDFRenderer(t.TempDir())
	ctx := context.Background()

	ref, err := r.Render(ctx, Document{CertificateNumber: "01HZY"})
	require.NoError(t, err)
	require.NoError(t, r.Discard(ctx, ref))
	_, err = os.Stat(ref)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, r.Discard(ctx, ref))
}
