// Package auth implements the admin gate: a shared password, an optional
// TOTP second factor, and a signed session cookie value.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionSubject = "admin"
	sessionIssuer  = "certledger"
)

var (
	// ErrInvalidCredentials is returned for a wrong password or TOTP code
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotConfigured is returned when no admin password is set
	ErrNotConfigured = errors.New("admin password not configured")
	// ErrInvalidSession is returned for a missing, forged or expired session
	ErrInvalidSession = errors.New("invalid admin session")
)

// Gate checks admin credentials and issues session tokens
type Gate struct {
	password   string
	totpSecret string
	key        []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewGate creates an admin gate. totpSecret may be empty.
func NewGate(password, totpSecret string, ttl time.Duration) *Gate {
	key := sha256.Sum256([]byte("certledger-admin-session:" + password))
	return &Gate{
		password:   password,
		totpSecret: totpSecret,
		key:        key[:],
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock replaces the time source
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// TOTPEnabled reports whether a second factor is required
func (g *Gate) TOTPEnabled() bool {
	return g.totpSecret != ""
}

// TTL returns the session lifetime
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// CheckPassword compares password with the configured secret in constant time
func (g *Gate) CheckPassword(password string) bool {
	if g.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
}

// Login checks the credentials and returns a session token
func (g *Gate) Login(password, code string) (string, error) {
	if g.password == "" {
		return "", ErrNotConfigured
	}
	if !g.CheckPassword(password) {
		return "", ErrInvalidCredentials
	}
	if g.TOTPEnabled() && !ValidateTOTPAt(g.totpSecret, code, g.now()) {
		return "", ErrInvalidCredentials
	}

	return g.IssueSession()
}

// IssueSession signs a session token valid for the configured TTL
func (g *Gate) IssueSession() (string, error) {
	now := g.now()
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   sessionSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return token, nil
}

// ValidateSession verifies a session token's signature and expiry
func (g *Gate) ValidateSession(token string) error {
	if token == "" || g.password == "" {
		return ErrInvalidSession
	}

	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) { return g.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(sessionSubject),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}
