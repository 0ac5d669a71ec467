package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/handlers"
)

type contextKey struct{}

var claimsKey = contextKey{}

// Middleware gates handlers behind a valid bearer token.
type Middleware struct {
	tokens *TokenManager
}

func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticated parses the Authorization header and stores the claims in
// the request context before invoking next.
func (m *Middleware) Authenticated(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		claims, err := m.claimsFromRequest(r)
		if err != nil {
			handlers.WriteError(w, err)
			return
		}
		next(w, r.WithContext(WithClaims(r.Context(), claims)), params)
	}
}

// Superuser additionally requires the superuser claim.
func (m *Middleware) Superuser(next httprouter.Handle) httprouter.Handle {
	return m.Authenticated(func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		claims, _ := ClaimsFromContext(r.Context())
		if !claims.IsSuperuser {
			handlers.WriteError(w, apperror.NewAuth("superuser required"))
			return
		}
		next(w, r, params)
	})
}

func (m *Middleware) claimsFromRequest(r *http.Request) (Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Claims{}, apperror.NewAuth("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Claims{}, apperror.NewAuth("malformed authorization header")
	}
	return m.tokens.Parse(parts[1])
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(Claims)
	return claims, ok
}
