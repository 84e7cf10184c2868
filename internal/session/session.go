// Package session issues, validates and revokes the signed session cookie
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the name of the cookie carrying the session token
const CookieName = "session"

var (
	// ErrRevoked is returned when a token was ended by logout
	ErrRevoked = errors.New("session revoked")
	// ErrStoreUnavailable is returned when the revocation state of a valid token cannot be read
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// RevocationStore is the interface that wraps the revocation list of ended sessions.
type RevocationStore interface {
	// Method Revoke marks the session "jti" as ended for "ttl".
	//
	// After "ttl" the token is expired anyway, so implementations may forget it.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// Method IsRevoked reports whether the session "jti" was ended.
	//
	// If the store cannot be reached, the error will be returned together with "false" value.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Claims is the payload of a session token
type Claims struct {
	UserID   int  `json:"user_id"`
	Remember bool `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// Manager handles session token generation, validation and revocation
type Manager struct {
	secret         []byte
	sessionExpiry  time.Duration
	rememberExpiry time.Duration
	secureCookie   bool
	store          RevocationStore
	now            func() time.Time
}

// NewManager creates a new session manager
//
// "sessionExpiry" applies to ordinary sign-ins, "rememberExpiry" to sign-ins with the remember flag.
func NewManager(secret string, sessionExpiry, rememberExpiry time.Duration, secureCookie bool, store RevocationStore) *Manager {
	return &Manager{
		secret:         []byte(secret),
		sessionExpiry:  sessionExpiry,
		rememberExpiry: rememberExpiry,
		secureCookie:   secureCookie,
		store:          store,
		now:            time.Now,
	}
}

// Issue creates a signed token for userID and returns it with its expiry time
func (m *Manager) Issue(userID int, remember bool) (string, time.Time, error) {
	now := m.now()
	expiry := m.sessionExpiry
	if remember {
		expiry = m.rememberExpiry
	}
	expiresAt := now.Add(expiry)

	claims := &Claims{
		UserID:   userID,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate checks the signature, expiry and revocation state of a token
func (m *Manager) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("invalid session token: missing user id")
	}

	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	return claims, nil
}

// Revoke ends the session described by claims until the token would have expired
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.store.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// SetCookie writes the session cookie.
//
// Without the remember flag the cookie has no Expires attribute and ends with the browser session.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time, remember bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = expiresAt
		cookie.MaxAge = int(expiresAt.Sub(m.now()).Seconds())
	}
	http.SetCookie(w, cookie)
}

// ClearCookie removes the session cookie from the browser
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session token sent with r, if any
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
