package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"

	"github.com/Gurjant002/api-g-books/internal/apperror"
)

const usersTable = "users"

var dialect = goqu.Dialect("postgres")

// Storage persists users in Postgres.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Create(ctx context.Context, u User) (int64, error) {
	query, args, err := dialect.Insert(usersTable).
		Rows(goqu.Record{
			"username":     u.Username,
			"email":        u.Email,
			"password":     u.Password,
			"first_name":   u.FirstName,
			"last_name":    u.LastName,
			"is_active":    u.IsActive,
			"is_superuser": u.IsSuperuser,
			"is_verified":  u.IsVerified,
			"date_joined":  u.DateJoined,
		}).
		Returning("id").
		Prepared(true).ToSQL()
	if err != nil {
		return 0, apperror.NewInternal("can not build insert", err)
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, apperror.NewInternal("can not insert user", err)
	}
	return id, nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (User, error) {
	return s.getBy(ctx, goqu.Ex{"id": id}, "user not found")
}

func (s *Storage) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getBy(ctx, goqu.Ex{"email": email}, "user not found")
}

func (s *Storage) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.getBy(ctx, goqu.Ex{"username": username}, "user not found")
}

func (s *Storage) getBy(ctx context.Context, where goqu.Ex, notFoundMsg string) (User, error) {
	query, args, err := dialect.From(usersTable).Where(where).Prepared(true).ToSQL()
	if err != nil {
		return User{}, apperror.NewInternal("can not build select", err)
	}

	var u User
	if err := s.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperror.NewNotFound(notFoundMsg)
		}
		return User{}, apperror.NewInternal("can not select user", err)
	}
	return u, nil
}

func (s *Storage) List(ctx context.Context) ([]User, error) {
	query, args, err := dialect.From(usersTable).
		Order(goqu.I("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperror.NewInternal("can not build select", err)
	}

	users := make([]User, 0)
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, apperror.NewInternal("can not select users", err)
	}
	return users, nil
}

func (s *Storage) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, goqu.Ex{"username": username})
}

func (s *Storage) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, goqu.Ex{"email": email})
}

func (s *Storage) exists(ctx context.Context, where goqu.Ex) (bool, error) {
	query, args, err := dialect.From(usersTable).
		Select(goqu.COUNT("*")).
		Where(where).
		Prepared(true).ToSQL()
	if err != nil {
		return false, apperror.NewInternal("can not build select", err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, apperror.NewInternal("can not count users", err)
	}
	return count > 0, nil
}
