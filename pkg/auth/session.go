// Package auth implements the admin sign-in: a configured passcode exchanged
// for a signed, expiring session token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject of every admin session
const AdminSubject = "admin"

// DefaultSessionTTL is how long an admin session lasts
const DefaultSessionTTL = 24 * time.Hour

var (
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrInvalidSession  = errors.New("invalid or expired session")
)

// Session is an authenticated admin session
type Session struct {
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsValid reports whether the session is usable at now
func (s *Session) IsValid(now time.Time) bool {
	return s != nil && s.Subject != "" && now.Before(s.ExpiresAt)
}

// Authenticator signs admins in and verifies their session tokens
type Authenticator struct {
	passcode []byte
	secret   []byte
	ttl      time.Duration
}

// NewAuthenticator returns an authenticator comparing against passcode and
// signing tokens with secret
func NewAuthenticator(passcode, secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Authenticator{
		passcode: []byte(passcode),
		secret:   []byte(secret),
		ttl:      ttl,
	}
}

// SignIn checks passcode and issues a session with its token
func (a *Authenticator) SignIn(passcode string, now time.Time) (*Session, string, error) {
	if len(a.passcode) == 0 || subtle.ConstantTimeCompare([]byte(passcode), a.passcode) != 1 {
		return nil, "", ErrInvalidPasscode
	}

	// JWT timestamps have second precision
	issued := now.Truncate(time.Second)
	session := &Session{
		Subject:   AdminSubject,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(a.ttl),
	}
	claims := jwt.RegisteredClaims{
		Subject:   session.Subject,
		IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}
	return session, token, nil
}

// Verify parses token and returns its session if it is valid at now
func (a *Authenticator) Verify(token string, now time.Time) (*Session, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	session := &Session{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	if session.Subject != AdminSubject || !session.IsValid(now) {
		return nil, ErrInvalidSession
	}
	return session, nil
}
