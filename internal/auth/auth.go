// Package auth verifies bearer tokens issued by the external identity
// provider and exposes the caller's identity to handlers. It never issues
// tokens itself.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the identity provider asserts about the caller.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	Admin       bool
}

type contextKey struct{}

var identityKey contextKey

var ErrInvalidToken = errors.New("invalid token")

type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

type claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Parse validates the token signature and expiry and returns the identity it
// carries. The subject claim is the provider uid.
func (v *Verifier) Parse(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UID:         c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		Admin:       c.Admin,
	}, nil
}

// IdentityFrom returns the identity attached by the middleware, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func (v *Verifier) identityFromRequest(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return Identity{}, ErrInvalidToken
	}
	return v.Parse(token)
}

// RequireUser rejects requests without a valid bearer token.
func (v *Verifier) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := v.identityFromRequest(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}

// RequireAdmin rejects requests unless the token carries the admin claim.
func (v *Verifier) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := v.identityFromRequest(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !id.Admin {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}

// OptionalUser attaches an identity when a valid token is present and lets
// anonymous requests through untouched. Checkout uses this: guests order
// without an account.
func (v *Verifier) OptionalUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, err := v.identityFromRequest(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next(w, r)
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
