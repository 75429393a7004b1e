// Package auth issues and verifies the signed session tokens that tell the
// workflow who is calling.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wecare-health/wecare/internal/identity"
)

const issuer = "wecare"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid or expired session")
)

type Claims struct {
	jwt.RegisteredClaims
	Role identity.Role `json:"role"`
	Name string        `json:"name,omitempty"`
}

type Sessions struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewSessions(secret string, ttl time.Duration, cookieName string, secure bool) *Sessions {
	return &Sessions{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
		now:        time.Now,
	}
}

// Issue signs a session for the account.
func (s *Sessions) Issue(a *identity.Account) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Role: a.Role,
		Name: a.Name,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Parse verifies a session token and returns the actor it carries.
func (s *Sessions) Parse(raw string) (identity.Actor, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return identity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || !claims.Role.Valid() {
		return identity.Actor{}, ErrInvalidSession
	}

	return identity.Actor{ID: id, Role: claims.Role}, nil
}

// FromRequest reads the session from the cookie, falling back to a bearer
// Authorization header for API clients.
func (s *Sessions) FromRequest(r *http.Request) (identity.Actor, error) {
	raw := ""
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		raw = c.Value
	} else if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return identity.Actor{}, ErrInvalidSession
		}
		raw = strings.TrimSpace(parts[1])
	}

	if raw == "" {
		return identity.Actor{}, ErrNoSession
	}
	return s.Parse(raw)
}

func (s *Sessions) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
