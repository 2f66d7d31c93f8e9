// Package certificate renders issued certifications into PDF files.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/spec-kit/certification-service/internal/domain"
)

// Document is everything printed on a certificate.
type Document struct {
	CertificateNumber string
	IssuedDate        string
	IssuerBody        string
	Details           domain.CertificateDetails
	Checklist         []domain.ChecklistItem
}

// Renderer produces a certificate artifact and returns a reference to it.
// Discard removes an artifact whose certification was never stored.
type Renderer interface {
	Render(ctx context.Context, doc Document) (string, error)
	Discard(ctx context.Context, ref string) error
}

// PDFRenderer writes Certificate_<number>.pdf files into a directory.
type PDFRenderer struct {
	dir string
}

func NewPDFRenderer(dir string) *PDFRenderer {
	if dir == "" {
		dir = "certificates"
	}
	return &PDFRenderer{dir: dir}
}

// FileName is the artifact name for a certificate number.
func FileName(number string) string {
	return fmt.Sprintf("Certificate_%s.pdf", number)
}

func (r *PDFRenderer) Render(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create certificate dir: %w", err)
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificate "+doc.CertificateNumber, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 20, "Certificate of Compliance", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, doc.Details.RecipientName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, "of "+doc.Details.OrganizationName, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.MultiCell(0, 8, fmt.Sprintf("has been audited against %s with compliance status: %s.",
		doc.Details.Standard, doc.Details.ComplianceStatus), "", "C", false)

	if len(doc.Checklist) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Standards reviewed", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, item := range doc.Checklist {
			mark := "pending"
			if item.ComplianceStatus {
				mark = "compliant"
			}
			pdf.CellFormat(0, 7, fmt.Sprintf("%s (%s)", item.Standard, mark), "", 1, "L", false, 0, "")
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.CellFormat(0, 7, "Issued by "+doc.IssuerBody+" on "+doc.IssuedDate, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Certificate number "+doc.CertificateNumber, "", 1, "R", false, 0, "")

	path := filepath.Join(r.dir, FileName(doc.CertificateNumber))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	return path, nil
}

func (r *PDFRenderer) Discard(_ context.Context, ref string) error {
	if err := os.Remove(ref); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove certificate: %w", err)
	}
	return nil
}
