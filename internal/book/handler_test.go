package book

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gurjant002/api-g-books/internal/auth"
	"github.com/Gurjant002/api-g-books/internal/user"
)

// newHandlerFixture mounts the routes on a real Service over the
// in-memory store, so handler tests exercise the same dispatch the
// server wires at startup.
func newHandlerFixture(t *testing.T) (*httprouter.Router, *auth.TokenManager, *fakeStore) {
	t.Helper()
	service, store := newTestService()
	tokens := auth.NewTokenManager("test-secret", time.Minute)
	h := &handler{service: service, mw: auth.NewMiddleware(tokens)}
	router := httprouter.New()
	h.Register(router)
	return router, tokens, store
}

func authHeader(t *testing.T, tokens *auth.TokenManager, id int64, superuser bool) string {
	t.Helper()
	token, err := tokens.Issue(id, superuser)
	require.NoError(t, err)
	return "Bearer " + token.AccessToken
}

func TestHandlerAddBookRequiresToken(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerAddSingleBook(t *testing.T) {
	router, tokens, store := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert","owner_id":1}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var decoded Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "Dune", decoded.Title)
	assert.NotZero(t, decoded.ID)
	require.Len(t, store.ownerships, 1)
	assert.Equal(t, int64(1), store.ownerships[0].OwnerID)
}

func TestHandlerAddBatchRespondsWithList(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"books":[{"title":"b1","author":"a1"},{"title":"b2","author":"a2"}]}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var decoded []Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	require.Len(t, decoded, 2)
}

func TestHandlerAddNeitherFormIsBadRequest(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(`{}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "either book or books")
}

func TestHandlerGetBook(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/books/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")
}

func TestHandlerGetBookNotFound(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/books/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "book not found")
}

func TestHandlerGetBookBadID(t *testing.T) {
	router, _, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/books/notanumber", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerGetBookWithOwner(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert","owner_id":1}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/books/1/owner", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	owner, ok := decoded["owner"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", owner["username"])
	assert.NotContains(t, owner, "password")
}

func TestHandlerBorrowUsesCallerIdentity(t *testing.T) {
	router, tokens, store := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/books/1/borrow", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 42, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, store.loans, 1)
	assert.Equal(t, int64(42), store.loans[0].UserID)
	assert.False(t, store.books[0].Available)
}

func TestHandlerBorrowUnavailable(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	for _, want := range []int{http.StatusCreated, http.StatusBadRequest} {
		r = httptest.NewRequest(http.MethodPost, "/books/1/borrow", nil)
		r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
		w = httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, want, w.Code)
	}
}

func TestHandlerReturnBook(t *testing.T) {
	router, tokens, store := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/books/1/borrow", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/books/1/return", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.books[0].Available)
}

func TestHandlerDeleteBookRequiresSuperuser(t *testing.T) {
	router, tokens, store := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert"}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodDelete, "/books/1", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodDelete, "/books/1", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, true))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.books)
}

func TestHandlerListBooksByOwnerEmail(t *testing.T) {
	router, tokens, _ := newHandlerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/books",
		strings.NewReader(`{"book":{"title":"Dune","author":"Herbert","owner_id":1}}`))
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusCreated, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/owned-books/by-email?email=a@b.co", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Dune")

	r = httptest.NewRequest(http.MethodGet, "/owned-books/by-email?email=nobody@b.co", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/owned-books/by-email", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 1, false))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerListLoansByUser(t *testing.T) {
	router, tokens, store := newHandlerFixture(t)
	store.books = append(store.books, Book{ID: 1, Title: "Dune", Author: "Herbert", Available: true})
	store.nextBookID = 2
	store.loans = append(store.loans, Loan{ID: 1, BookID: 1, UserID: 5,
		Start: "2024-01-01T00:00:00Z", End: "2024-01-31T00:00:00Z"})

	r := httptest.NewRequest(http.MethodGet, "/users/5/loans", nil)
	r.Header.Set("Authorization", authHeader(t, tokens, 5, false))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var decoded []Loan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(1), decoded[0].BookID)
}

func TestHandlerListBooksWithOwnersIsPublic(t *testing.T) {
	router, _, store := newHandlerFixture(t)
	store.books = append(store.books, Book{ID: 1, Title: "Dune", Author: "Herbert", Available: true})
	store.addOwnership(1, 1)
	store.users[1] = user.User{ID: 1, Username: "alice", Email: "a@b.co", IsActive: true}

	r := httptest.NewRequest(http.MethodGet, "/owned-books", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.NotContains(t, w.Body.String(), "password")
}
