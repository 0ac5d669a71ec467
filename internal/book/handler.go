package book

import (
	"context"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/auth"
	"github.com/Gurjant002/api-g-books/internal/handlers"
)

const (
	booksURL           = "/books"
	bookByIDURL        = "/books/:id"
	bookOwnerURL       = "/books/:id/owner"
	bookBorrowURL      = "/books/:id/borrow"
	bookReturnURL      = "/books/:id/return"
	ownedBooksURL      = "/owned-books"
	ownedBooksEmailURL = "/owned-books/by-email"
	userBooksURL       = "/users/:id/books"
	userLoansURL       = "/users/:id/loans"
)

type catalog interface {
	Add(ctx context.Context, req AddBookRequest) ([]Book, error)
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int64) (Book, error)
	GetWithOwner(ctx context.Context, id int64) (BookWithOwner, error)
	ListWithOwners(ctx context.Context) ([]BookWithOwner, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]BookWithOwner, error)
	ListByOwnerEmail(ctx context.Context, email string) ([]BookWithOwner, error)
	Delete(ctx context.Context, id int64) error
	Borrow(ctx context.Context, bookID, userID int64) (Loan, error)
	Return(ctx context.Context, bookID, userID int64) (Loan, error)
	LoansByUser(ctx context.Context, userID int64) ([]Loan, error)
}

type handler struct {
	service catalog
	mw      *auth.Middleware
}

func NewHandler(service *Service, mw *auth.Middleware) handlers.Handler {
	return &handler{service: service, mw: mw}
}

func (h *handler) Register(router *httprouter.Router) {
	router.POST(booksURL, h.mw.Authenticated(h.AddBooks))
	router.GET(booksURL, h.ListBooks)
	router.GET(bookByIDURL, h.GetBook)
	router.GET(bookOwnerURL, h.GetBookWithOwner)
	router.DELETE(bookByIDURL, h.mw.Superuser(h.DeleteBook))
	router.POST(bookBorrowURL, h.mw.Authenticated(h.BorrowBook))
	router.POST(bookReturnURL, h.mw.Authenticated(h.ReturnBook))
	router.GET(ownedBooksURL, h.ListBooksWithOwners)
	router.GET(ownedBooksEmailURL, h.mw.Authenticated(h.ListBooksByOwnerEmail))
	router.GET(userBooksURL, h.mw.Authenticated(h.ListBooksByOwner))
	router.GET(userLoansURL, h.mw.Authenticated(h.ListLoansByUser))
}

func (h *handler) AddBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req AddBookRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.WriteError(w, err)
		return
	}

	created, err := h.service.Add(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	if req.Book != nil {
		handlers.WriteJSON(w, http.StatusCreated, created[0])
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) ListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := h.service.List(r.Context())
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, books)
}

func (h *handler) GetBook(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, b)
}

func (h *handler) GetBookWithOwner(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	b, err := h.service.GetWithOwner(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, b)
}

func (h *handler) DeleteBook(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handlers.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) BorrowBook(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	loan, err := h.service.Borrow(r.Context(), id, claims.UserID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, loan)
}

func (h *handler) ReturnBook(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	loan, err := h.service.Return(r.Context(), id, claims.UserID)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, loan)
}

func (h *handler) ListBooksWithOwners(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := h.service.ListWithOwners(r.Context())
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, books)
}

func (h *handler) ListBooksByOwnerEmail(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	email := r.URL.Query().Get("email")
	if email == "" {
		handlers.WriteError(w, apperror.NewValidation("email query parameter is required"))
		return
	}

	books, err := h.service.ListByOwnerEmail(r.Context(), email)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, books)
}

func (h *handler) ListBooksByOwner(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	books, err := h.service.ListByOwner(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, books)
}

func (h *handler) ListLoansByUser(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id, err := parseID(params)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}

	loans, err := h.service.LoansByUser(r.Context(), id)
	if err != nil {
		handlers.WriteError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, loans)
}

func parseID(params httprouter.Params) (int64, error) {
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return 0, apperror.NewValidation("id must be an integer")
	}
	return id, nil
}
