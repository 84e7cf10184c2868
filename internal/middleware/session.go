package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/session"
	"go.uber.org/zap"
)

const (
	identityKey contextKey = "identity"
	claimsKey   contextKey = "sessionClaims"
)

// IdentityLoader is the interface that resolves a session's user id to an identity.
type IdentityLoader interface {
	// Method LoadIdentity returns the identity of user "userID".
	//
	// If the user no longer exists, the error wrapping models.ErrNotFound will be returned.
	LoadIdentity(ctx context.Context, userID int) (*models.Identity, error)
	// Method TouchLastSeen records that user "userID" made a request just now.
	TouchLastSeen(ctx context.Context, userID int) error
}

// SessionMiddleware resolves the session cookie into a request-scoped identity.
//
// Invalid, expired, revoked or orphaned sessions make the request anonymous and clear the cookie.
// When the revocation store is down the request fails with 503 and the cookie is left alone.
func SessionMiddleware(manager *session.Manager, loader IdentityLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := session.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			claims, err := manager.Validate(ctx, token)
			if errors.Is(err, session.ErrStoreUnavailable) {
				logger.Error("failed to check session revocation", zap.Error(err), zap.String("request_id", GetRequestID(ctx)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"service unavailable"}`))
				return
			}
			if err != nil {
				if !errors.Is(err, session.ErrRevoked) {
					logger.Debug("rejected session token", zap.Error(err), zap.String("request_id", GetRequestID(ctx)))
				}
				manager.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			identity, err := loader.LoadIdentity(ctx, claims.UserID)
			if errors.Is(err, models.ErrNotFound) {
				manager.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.Error("failed to load session identity", zap.Error(err), zap.Int("userID", claims.UserID))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal server error"}`))
				return
			}

			if err := loader.TouchLastSeen(ctx, identity.UserID); err != nil {
				logger.Warn("failed to update last seen", zap.Error(err), zap.Int("userID", identity.UserID))
			}

			if rw, ok := w.(*responseWriter); ok {
				rw.identity = identity
			}

			ctx = context.WithValue(ctx, identityKey, identity)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser redirects anonymous requests to the login page, remembering where they were headed
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r.Context()) == nil {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity retrieves the signed-in identity from context, or nil for anonymous requests
func GetIdentity(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey).(*models.Identity)
	return identity
}

// GetSessionClaims retrieves the validated session claims from context
func GetSessionClaims(ctx context.Context) *session.Claims {
	claims, _ := ctx.Value(claimsKey).(*session.Claims)
	return claims
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
