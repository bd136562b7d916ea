package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"brandsim/server/internal/config"
)

type userIDKey struct{}

// Authenticator verifies HMAC-signed tokens issued by the identity provider
type Authenticator struct {
	secret  []byte
	options []jwt.ParserOption
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{secret: []byte(cfg.JWTSecret), options: options}
}

// Verify parses token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, a.options...)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody("Authorization header required"))
			return
		}
		a.serveWithToken(w, r, next, token)
	})
}

// QueryTokenRequired accepts the token from the token query parameter, for
// WebSocket clients that cannot set headers, and falls back to the header.
func (a *Authenticator) QueryTokenRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			var ok bool
			if token, ok = bearerToken(r); !ok {
				writeJSON(w, http.StatusUnauthorized, errorBody("Token required"))
				return
			}
		}
		a.serveWithToken(w, r, next, token)
	})
}

func (a *Authenticator) serveWithToken(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	userID, err := a.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid or expired token"))
		return
	}
	next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated caller set by the auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
