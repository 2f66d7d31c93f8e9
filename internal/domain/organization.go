package domain

import "time"

// Organization is a company seeking certification.
type Organization struct {
	ID           string
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CertificationBody audits organizations and issues certificates.
type CertificationBody struct {
	ID           string
	Name         string
	Address      string
	ContactEmail string
	ContactPhone string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
