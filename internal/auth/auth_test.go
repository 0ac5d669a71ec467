package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gurjant002/api-g-books/internal/apperror"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("longenough1")
	require.NoError(t, err)
	assert.NotEqual(t, "longenough1", hash)

	assert.True(t, VerifyPassword("longenough1", hash))
	assert.False(t, VerifyPassword("wrong", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", 30*time.Minute)

	token, err := m.Issue(42, true)
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.NotEmpty(t, token.AccessToken)

	claims, err := m.Parse(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.True(t, claims.IsSuperuser)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-one", time.Minute).Issue(1, false)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-two", time.Minute).Parse(token.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperror.Auth, apperror.KindOf(err))
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)
	token, err := m.Issue(1, false)
	require.NoError(t, err)

	_, err = m.Parse(token.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperror.Auth, apperror.KindOf(err))
}

func TestParseRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	_, err := m.Parse("not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperror.Auth, apperror.KindOf(err))
}

func TestMiddlewareAuthenticated(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Minute)
	mw := NewMiddleware(tokens)

	var gotClaims Claims
	next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	token, err := tokens.Issue(7, false)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set("Authorization", "Bearer "+token.AccessToken)
	w := httptest.NewRecorder()
	mw.Authenticated(next)(w, r, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), gotClaims.UserID)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	mw := NewMiddleware(NewTokenManager("test-secret", time.Minute))

	called := false
	next := func(http.ResponseWriter, *http.Request, httprouter.Params) { called = true }

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	mw.Authenticated(next)(w, r, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestMiddlewareSuperuser(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Minute)
	mw := NewMiddleware(tokens)

	next := func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}

	plain, err := tokens.Issue(7, false)
	require.NoError(t, err)
	super, err := tokens.Issue(8, true)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/users", nil)
	r.Header.Set("Authorization", "Bearer "+plain.AccessToken)
	w := httptest.NewRecorder()
	mw.Superuser(next)(w, r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/users", nil)
	r.Header.Set("Authorization", "Bearer "+super.AccessToken)
	w = httptest.NewRecorder()
	mw.Superuser(next)(w, r, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
