package book

import (
	"context"
	"time"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/user"
)

// loanDays is the default borrow window.
const loanDays = 30

// Store is the persistence contract of the catalog.
type Store interface {
	Create(ctx context.Context, b Book, ownerID *int64) (Book, error)
	CreateBatch(ctx context.Context, books []Book, owners []*int64) ([]Book, error)
	GetByID(ctx context.Context, id int64) (Book, error)
	List(ctx context.Context) ([]Book, error)
	Owner(ctx context.Context, bookID int64) (user.User, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Book, error)
	ListWithOwners(ctx context.Context) ([]BookWithOwner, error)
	Delete(ctx context.Context, id int64) error
	Borrow(ctx context.Context, bookID, userID int64, start, end string) (Loan, error)
	ReturnByBook(ctx context.Context, bookID, userID int64, end string) (Loan, error)
	LoansByUser(ctx context.Context, userID int64) ([]Loan, error)
}

// Directory is the slice of the user service the catalog needs to
// resolve owners.
type Directory interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// Service is the book catalog: creation, listing, ownership resolution
// and the loan lifecycle.
type Service struct {
	store Store
	users Directory
}

func NewService(store Store, users Directory) *Service {
	return &Service{store: store, users: users}
}

// Add handles both forms of the add request: a single book or a batch.
// Exactly one must be supplied. Payloads are validated uniformly on
// both paths before anything is written.
func (s *Service) Add(ctx context.Context, req AddBookRequest) ([]Book, error) {
	if req.Book == nil && len(req.Books) == 0 {
		return nil, apperror.NewValidation("either book or books must be supplied")
	}
	if req.Book != nil && len(req.Books) > 0 {
		return nil, apperror.NewValidation("supply either book or books, not both")
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if req.Book != nil {
		b, ownerID, err := fromPayload(*req.Book, now)
		if err != nil {
			return nil, err
		}
		created, err := s.store.Create(ctx, b, ownerID)
		if err != nil {
			return nil, err
		}
		return []Book{created}, nil
	}

	books := make([]Book, 0, len(req.Books))
	owners := make([]*int64, 0, len(req.Books))
	for _, payload := range req.Books {
		b, ownerID, err := fromPayload(payload, now)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
		owners = append(owners, ownerID)
	}
	return s.store.CreateBatch(ctx, books, owners)
}

func fromPayload(p BookPayload, dateAdded string) (Book, *int64, error) {
	if p.Title == "" {
		return Book{}, nil, apperror.NewValidation("book title is required")
	}
	if p.Author == "" {
		return Book{}, nil, apperror.NewValidation("book author is required")
	}
	return Book{
		Title:         p.Title,
		Author:        p.Author,
		PublishedYear: p.PublishedYear,
		ISBN:          p.ISBN,
		Pages:         p.Pages,
		Cover:         p.Cover,
		Language:      p.Language,
		Description:   p.Description,
		Available:     true,
		DateAdded:     &dateAdded,
	}, p.OwnerID, nil
}

func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	return s.store.GetByID(ctx, id)
}

// GetWithOwner composes a book with its resolved owner. A missing book
// is NotFound; an existing book without an ownership row is an internal
// consistency breach, not a user-facing 404.
func (s *Service) GetWithOwner(ctx context.Context, id int64) (BookWithOwner, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return BookWithOwner{}, err
	}

	owner, err := s.store.Owner(ctx, id)
	if err != nil {
		if apperror.KindOf(err) == apperror.NotFound {
			return BookWithOwner{}, apperror.NewInternal("book has no owner", err)
		}
		return BookWithOwner{}, err
	}

	return BookWithOwner{Book: b, Owner: owner.NonSensitive()}, nil
}

// Owner answers "who owns book X".
func (s *Service) Owner(ctx context.Context, bookID int64) (user.User, error) {
	return s.store.Owner(ctx, bookID)
}

func (s *Service) ListWithOwners(ctx context.Context) ([]BookWithOwner, error) {
	return s.store.ListWithOwners(ctx)
}

// ListByOwner returns the books owned by the user, paired with the
// owner projection. Unknown owner is NotFound; an owner with no books
// gets an empty list.
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]BookWithOwner, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.listForOwner(ctx, owner)
}

// ListByOwnerEmail resolves the owner by email first and then delegates
// to the id-based listing.
func (s *Service) ListByOwnerEmail(ctx context.Context, email string) ([]BookWithOwner, error) {
	owner, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.listForOwner(ctx, owner)
}

func (s *Service) listForOwner(ctx context.Context, owner user.User) ([]BookWithOwner, error) {
	books, err := s.store.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	projection := owner.NonSensitive()
	out := make([]BookWithOwner, 0, len(books))
	for _, b := range books {
		out = append(out, BookWithOwner{Book: b, Owner: projection})
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Borrow opens a thirty day loan for the caller and marks the book
// unavailable.
func (s *Service) Borrow(ctx context.Context, bookID, userID int64) (Loan, error) {
	start := time.Now().UTC()
	end := start.AddDate(0, 0, loanDays)
	return s.store.Borrow(ctx, bookID, userID,
		start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// Return closes the caller's loan on the book and makes it available
// again.
func (s *Service) Return(ctx context.Context, bookID, userID int64) (Loan, error) {
	return s.store.ReturnByBook(ctx, bookID, userID, time.Now().UTC().Format(time.RFC3339))
}

func (s *Service) LoansByUser(ctx context.Context, userID int64) ([]Loan, error) {
	return s.store.LoansByUser(ctx, userID)
}
