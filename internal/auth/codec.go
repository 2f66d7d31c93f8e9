package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Salt namespaces signed tokens so one purpose cannot be replayed as another.
type Salt string

const (
	SaltEmailConfirmation Salt = "email-confirmation-salt"
	SaltPasswordReset     Salt = "password-reset-salt"
	SaltInvitation        Salt = "invitation-token"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Codec signs and verifies time-limited bearer tokens carrying a JSON payload.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec keyed by secret. now defaults to time.Now.
func NewCodec(secret string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), now: now}
}

type codecClaims struct {
	Payload  json.RawMessage `json:"pld"`
	SignedAt int64           `json:"sat"`
	jwt.RegisteredClaims
}

// Sign encodes payload into a token valid only for salt.
func (c *Codec) Sign(payload any, salt Salt) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	now := c.now()
	claims := codecClaims{
		Payload:  raw,
		SignedAt: now.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: jwt.ClaimStrings{string(salt)},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.key(salt))
}

// Verify checks signature and age, decoding the payload into out.
// Tokens at or beyond maxAge fail with ErrTokenExpired; anything else that does
// not verify fails with ErrTokenInvalid.
func (c *Codec) Verify(token string, salt Salt, maxAge time.Duration, out any) error {
	claims := &codecClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key(salt), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ErrTokenInvalid
	}
	if !claims.matchesAudience(salt) || claims.SignedAt == 0 {
		return ErrTokenInvalid
	}
	age := c.now().Sub(time.Unix(0, claims.SignedAt))
	if age >= maxAge {
		return ErrTokenExpired
	}
	if out != nil {
		if err := json.Unmarshal(claims.Payload, out); err != nil {
			return ErrTokenInvalid
		}
	}
	return nil
}

func (c *codecClaims) matchesAudience(salt Salt) bool {
	for _, aud := range c.Audience {
		if aud == string(salt) {
			return true
		}
	}
	return false
}

// key derives a per-salt signing key from the server secret.
func (c *Codec) key(salt Salt) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(salt))
	return mac.Sum(nil)
}
