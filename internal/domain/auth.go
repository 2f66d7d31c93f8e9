package domain

import "time"

// TokenKind differentiates access and refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RevokedToken blacklists a token id after logout.
type RevokedToken struct {
	ID        string
	JTI       string
	RevokedAt time.Time
	ExpiresAt time.Time
}
