// Package security verifies the bearer tokens the API receives. Identity is
// owned by the external provider (Auth0); this package only validates
// signatures and claims and never stores credentials.
package security

import (
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds the token claims the service consumes. Subject is the identity
// provider's stable user identifier.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Verifier validates bearer tokens signed with HS256 (shared secret) or
// RS256/ES256 (provider public key).
type Verifier struct {
	secret    []byte
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewHS256Verifier returns a Verifier for HS256 tokens signed with secret.
// issuer and audience are validated when non-empty.
func NewHS256Verifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// NewPublicKeyVerifier returns a Verifier for RS256/ES256 tokens using the
// PEM-encoded public key.
func NewPublicKeyVerifier(pemData []byte, issuer, audience string) (*Verifier, error) {
	if rsaKey, err := jwt.ParseRSAPublicKeyFromPEM(pemData); err == nil {
		return &Verifier{publicKey: rsaKey, issuer: issuer, audience: audience}, nil
	}
	ecKey, err := jwt.ParseECPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Verifier{publicKey: ecKey, issuer: issuer, audience: audience}, nil
}

// Verify parses and validates the token string and returns its claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, ErrInvalidToken
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			if v.publicKey == nil {
				return nil, ErrInvalidToken
			}
			return v.publicKey, nil
		default:
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// IssueHS256 signs an HS256 token with the given claims. Used by cmd/seed and
// tests; production tokens come from the identity provider.
func IssueHS256(secret, subject, email, name string, roles []string, issuer, audience string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Name:  name,
		Roles: roles,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
