package book

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/user"
)

const (
	booksTable  = "books"
	ownersTable = "book_owners"
	loansTable  = "loans"
)

var dialect = goqu.Dialect("postgres")

// Storage persists books, ownership links and loans. Multi-row writes
// run inside a single transaction so partial state is never visible.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Create inserts a book and, when ownerID is set, its ownership link.
// The generated book id is obtained with RETURNING before the link is
// written; both rows commit together or not at all.
func (s *Storage) Create(ctx context.Context, b Book, ownerID *int64) (Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Book{}, apperror.NewInternal("can not begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	id, err := insertBook(ctx, tx, b)
	if err != nil {
		return Book{}, err
	}
	b.ID = id

	if ownerID != nil {
		if err := insertOwnership(ctx, tx, id, *ownerID, b.DateAdded); err != nil {
			return Book{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Book{}, apperror.NewInternal("can not commit transaction", err)
	}
	return b, nil
}

// CreateBatch inserts all books in one transaction, collects the
// generated ids from a single multi-row RETURNING, then writes one
// ownership link per book that has an owner. All-or-nothing.
func (s *Storage) CreateBatch(ctx context.Context, books []Book, owners []*int64) ([]Book, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperror.NewInternal("can not begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows := make([]interface{}, 0, len(books))
	for _, b := range books {
		rows = append(rows, bookRecord(b))
	}

	query, args, err := dialect.Insert(booksTable).
		Rows(rows...).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build insert", err)
	}

	res, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewInternal("can not insert books", err)
	}

	ids := make([]int64, 0, len(books))
	for res.Next() {
		var id int64
		if err := res.Scan(&id); err != nil {
			_ = res.Close()
			return nil, apperror.NewInternal("can not scan book id", err)
		}
		ids = append(ids, id)
	}
	if err := res.Err(); err != nil {
		return nil, apperror.NewInternal("can not read book ids", err)
	}
	_ = res.Close()

	for i := range books {
		books[i].ID = ids[i]
		if owners[i] == nil {
			continue
		}
		if err := insertOwnership(ctx, tx, ids[i], *owners[i], books[i].DateAdded); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.NewInternal("can not commit transaction", err)
	}
	return books, nil
}

func insertBook(ctx context.Context, tx *sqlx.Tx, b Book) (int64, error) {
	query, args, err := dialect.Insert(booksTable).
		Rows(bookRecord(b)).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return 0, apperror.NewInternal("can not build insert", err)
	}

	var id int64
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, apperror.NewInternal("can not insert book", err)
	}
	return id, nil
}

func insertOwnership(ctx context.Context, tx *sqlx.Tx, bookID, ownerID int64, dateAdded *string) error {
	query, args, err := dialect.Insert(ownersTable).
		Rows(goqu.Record{
			"book_id":    bookID,
			"owner_id":   ownerID,
			"date_added": dateAdded,
		}).
		Prepared(true).ToSQL()
	if err != nil {
		return apperror.NewInternal("can not build insert", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewInternal("can not insert ownership", err)
	}
	return nil
}

func bookRecord(b Book) goqu.Record {
	return goqu.Record{
		"title":          b.Title,
		"author":         b.Author,
		"published_year": b.PublishedYear,
		"isbn":           b.ISBN,
		"pages":          b.Pages,
		"cover":          b.Cover,
		"language":       b.Language,
		"description":    b.Description,
		"available":      b.Available,
		"date_added":     b.DateAdded,
	}
}

func (s *Storage) GetByID(ctx context.Context, id int64) (Book, error) {
	query, args, err := dialect.From(booksTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return Book{}, apperror.NewInternal("can not build select", err)
	}

	var b Book
	if err := s.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Book{}, apperror.NewNotFound("book not found")
		}
		return Book{}, apperror.NewInternal("can not select book", err)
	}
	return b, nil
}

func (s *Storage) List(ctx context.Context) ([]Book, error) {
	query, args, err := dialect.From(booksTable).
		Order(goqu.I("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build select", err)
	}

	books := make([]Book, 0)
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, apperror.NewInternal("can not select books", err)
	}
	return books, nil
}

// Owner resolves the owning user of a book via book_owners. NotFound
// when the book has no ownership row.
func (s *Storage) Owner(ctx context.Context, bookID int64) (user.User, error) {
	query, args, err := dialect.From(goqu.T("users")).
		Join(
			goqu.T(ownersTable),
			goqu.On(goqu.I("users.id").Eq(goqu.I("book_owners.owner_id"))),
		).
		Where(goqu.Ex{"book_owners.book_id": bookID}).
		Select(goqu.I("users.*")).
		Prepared(true).ToSQL()
	if err != nil {
		return user.User{}, apperror.NewInternal("can not build select", err)
	}

	var owner user.User
	if err := s.db.GetContext(ctx, &owner, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, apperror.NewNotFound("owner not found")
		}
		return user.User{}, apperror.NewInternal("can not select owner", err)
	}
	return owner, nil
}

// ListByOwner returns the books owned by one user, two-way join, id
// ascending. No ownership rows yields an empty slice, not an error.
func (s *Storage) ListByOwner(ctx context.Context, ownerID int64) ([]Book, error) {
	query, args, err := dialect.From(goqu.T(booksTable)).
		Join(
			goqu.T(ownersTable),
			goqu.On(goqu.I("books.id").Eq(goqu.I("book_owners.book_id"))),
		).
		Where(goqu.Ex{"book_owners.owner_id": ownerID}).
		Select(goqu.I("books.*")).
		Order(goqu.I("books.id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build select", err)
	}

	books := make([]Book, 0)
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, apperror.NewInternal("can not select books", err)
	}
	return books, nil
}

type ownedRow struct {
	Book
	OwnerUsername  string `db:"owner_username"`
	OwnerEmail     string `db:"owner_email"`
	OwnerFirstName string `db:"owner_first_name"`
	OwnerLastName  string `db:"owner_last_name"`
	OwnerIsActive  bool   `db:"owner_is_active"`
}

// ListWithOwners lists every owned book with its owner: a three-way
// join of books, book_owners and users, id ascending.
func (s *Storage) ListWithOwners(ctx context.Context) ([]BookWithOwner, error) {
	query, args, err := dialect.From(goqu.T(booksTable)).
		Join(
			goqu.T(ownersTable),
			goqu.On(goqu.I("books.id").Eq(goqu.I("book_owners.book_id"))),
		).
		Join(
			goqu.T("users"),
			goqu.On(goqu.I("book_owners.owner_id").Eq(goqu.I("users.id"))),
		).
		Select(
			goqu.I("books.*"),
			goqu.I("users.username").As("owner_username"),
			goqu.I("users.email").As("owner_email"),
			goqu.I("users.first_name").As("owner_first_name"),
			goqu.I("users.last_name").As("owner_last_name"),
			goqu.I("users.is_active").As("owner_is_active"),
		).
		Order(goqu.I("books.id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build select", err)
	}

	rows := make([]ownedRow, 0)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.NewInternal("can not select books with owners", err)
	}

	out := make([]BookWithOwner, 0, len(rows))
	for _, row := range rows {
		out = append(out, BookWithOwner{
			Book: row.Book,
			Owner: user.NonSensitiveUser{
				Username:  row.OwnerUsername,
				Email:     row.OwnerEmail,
				FirstName: row.OwnerFirstName,
				LastName:  row.OwnerLastName,
				IsActive:  row.OwnerIsActive,
			},
		})
	}
	return out, nil
}

// Delete removes a book; ownership links and loans go with it through
// the ON DELETE CASCADE constraints.
func (s *Storage) Delete(ctx context.Context, id int64) error {
	query, args, err := dialect.Delete(booksTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return apperror.NewInternal("can not build delete", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperror.NewInternal("can not delete book", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperror.NewInternal("can not delete book", err)
	}
	if affected == 0 {
		return apperror.NewNotFound("book not found")
	}
	return nil
}

// Borrow creates a loan and flips the availability flag in one
// transaction. The book row is locked first so two concurrent borrows
// of the same copy can not both succeed.
func (s *Storage) Borrow(ctx context.Context, bookID, userID int64, start, end string) (Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Loan{}, apperror.NewInternal("can not begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := dialect.From(booksTable).
		Select("available").
		Where(goqu.Ex{"id": bookID}).
		ForUpdate(exp.Wait).
		Prepared(true).ToSQL()
	if err != nil {
		return Loan{}, apperror.NewInternal("can not build select", err)
	}

	var available bool
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Loan{}, apperror.NewNotFound("book not found")
		}
		return Loan{}, apperror.NewInternal("can not select book", err)
	}
	if !available {
		return Loan{}, apperror.NewValidation("book is not available")
	}

	query, args, err = dialect.Insert(loansTable).
		Rows(goqu.Record{
			"book_id":    bookID,
			"user_id":    userID,
			"start_date": start,
			"end_date":   end,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return Loan{}, apperror.NewInternal("can not build insert", err)
	}

	loan := Loan{BookID: bookID, UserID: userID, Start: start, End: end}
	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&loan.ID); err != nil {
		return Loan{}, apperror.NewInternal("can not insert loan", err)
	}

	if err := setAvailability(ctx, tx, bookID, false); err != nil {
		return Loan{}, err
	}

	if err := tx.Commit(); err != nil {
		return Loan{}, apperror.NewInternal("can not commit transaction", err)
	}
	return loan, nil
}

// ReturnByBook closes the most recent loan of the book by this user and
// makes the book available again, one transaction.
func (s *Storage) ReturnByBook(ctx context.Context, bookID, userID int64, end string) (Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Loan{}, apperror.NewInternal("can not begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := dialect.From(loansTable).
		Where(goqu.Ex{"book_id": bookID, "user_id": userID}).
		Order(goqu.I("id").Desc()).
		Limit(1).
		Prepared(true).ToSQL()
	if err != nil {
		return Loan{}, apperror.NewInternal("can not build select", err)
	}

	var loan Loan
	if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Loan{}, apperror.NewNotFound("loan not found")
		}
		return Loan{}, apperror.NewInternal("can not select loan", err)
	}

	query, args, err = dialect.Update(loansTable).
		Set(goqu.Record{"end_date": end}).
		Where(goqu.Ex{"id": loan.ID}).
		Prepared(true).ToSQL()
	if err != nil {
		return Loan{}, apperror.NewInternal("can not build update", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Loan{}, apperror.NewInternal("can not update loan", err)
	}
	loan.End = end

	if err := setAvailability(ctx, tx, bookID, true); err != nil {
		return Loan{}, err
	}

	if err := tx.Commit(); err != nil {
		return Loan{}, apperror.NewInternal("can not commit transaction", err)
	}
	return loan, nil
}

func setAvailability(ctx context.Context, tx *sqlx.Tx, bookID int64, available bool) error {
	query, args, err := dialect.Update(booksTable).
		Set(goqu.Record{"available": available}).
		Where(goqu.Ex{"id": bookID}).
		Prepared(true).ToSQL()
	if err != nil {
		return apperror.NewInternal("can not build update", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewInternal("can not update book availability", err)
	}
	return nil
}

func (s *Storage) LoansByUser(ctx context.Context, userID int64) ([]Loan, error) {
	query, args, err := dialect.From(loansTable).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build select", err)
	}

	loans := make([]Loan, 0)
	if err := s.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, apperror.NewInternal("can not select loans", err)
	}
	return loans, nil
}
