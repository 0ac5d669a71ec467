package book

import (
	"github.com/Gurjant002/api-g-books/internal/user"
)

type Book struct {
	ID            int64   `db:"id" json:"id"`
	Title         string  `db:"title" json:"title"`
	Author        string  `db:"author" json:"author"`
	PublishedYear *int    `db:"published_year" json:"published_year"`
	ISBN          *string `db:"isbn" json:"isbn"`
	Pages         *int    `db:"pages" json:"pages"`
	Cover         *string `db:"cover" json:"cover"`
	Language      *string `db:"language" json:"language"`
	Description   *string `db:"description" json:"description"`
	Available     bool    `db:"available" json:"available"`
	DateAdded     *string `db:"date_added" json:"date_added"`
}

// Ownership links a book to the user who possesses it. A book has at
// most one ownership row, the store enforces it.
type Ownership struct {
	ID        int64   `db:"id" json:"id"`
	BookID    int64   `db:"book_id" json:"book_id"`
	OwnerID   int64   `db:"owner_id" json:"owner_id"`
	DateAdded *string `db:"date_added" json:"date_added"`
}

// Loan is a time-bounded borrow record, distinct from ownership. Dates
// are ISO-8601 strings, end_date defaults to thirty days after start.
type Loan struct {
	ID     int64  `db:"id" json:"id"`
	BookID int64  `db:"book_id" json:"book_id"`
	UserID int64  `db:"user_id" json:"user_id"`
	Start  string `db:"start_date" json:"start"`
	End    string `db:"end_date" json:"end"`
}

// BookWithOwner pairs a book with the non-sensitive projection of its
// owner.
type BookWithOwner struct {
	Book
	Owner user.NonSensitiveUser `json:"owner"`
}

// BookPayload is a single book in an add request. OwnerID is optional;
// when present an ownership link is written in the same transaction.
type BookPayload struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	PublishedYear *int    `json:"published_year"`
	ISBN          *string `json:"isbn"`
	Pages         *int    `json:"pages"`
	Cover         *string `json:"cover"`
	Language      *string `json:"language"`
	Description   *string `json:"description"`
	OwnerID       *int64  `json:"owner_id"`
}

// AddBookRequest carries exactly one of Book or Books.
type AddBookRequest struct {
	Book  *BookPayload  `json:"book"`
	Books []BookPayload `json:"books"`
}
