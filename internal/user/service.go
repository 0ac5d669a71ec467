package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Gurjant002/api-g-books/internal/apperror"
	"github.com/Gurjant002/api-g-books/internal/auth"
)

// Pattern carried over from the first version of the API: lowercase
// local part of alnum/-_+. , an alnum domain and a TLD of two or more
// characters.
var emailRegex = regexp.MustCompile(`^([a-z]|[0-9]|\-|\_|\+|\.)+\@([a-z]|[0-9])+\.[a-z]{2,}(\.[a-z]{2,})?$`)

const minPasswordLen = 8

// Store is the persistence contract the directory service needs.
type Store interface {
	Create(ctx context.Context, u User) (int64, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// Service is the user directory: registration, authentication and reads.
type Service struct {
	store  Store
	tokens *auth.TokenManager
}

func NewService(store Store, tokens *auth.TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register validates the request, hashes the password and stores the new
// account. Checks run in a fixed order and stop at the first failure:
// email format, email uniqueness, password length, password confirmation,
// username uniqueness.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if !emailRegex.MatchString(req.Email) {
		return User{}, apperror.NewValidation("invalid email address")
	}

	taken, err := s.store.EmailTaken(ctx, req.Email)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, apperror.NewValidation("email already registered")
	}

	if len(req.Password) < minPasswordLen {
		return User{}, apperror.NewValidation("password must be at least 8 characters long")
	}

	if req.Password != req.PasswordConfirm {
		return User{}, apperror.NewValidation("passwords do not match")
	}

	taken, err = s.store.UsernameTaken(ctx, req.Username)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, apperror.NewValidation("username already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return User{}, apperror.NewInternal("can not hash password", err)
	}

	u := User{
		Username:   req.Username,
		Email:      req.Email,
		Password:   hash,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		IsActive:   true,
		DateJoined: time.Now().UTC().Format(time.RFC3339),
	}

	id, err := s.store.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// Insert stores a fully shaped record on behalf of a superuser. The
// registration validation chain does not apply; a plaintext password is
// still hashed before it reaches the store.
func (s *Service) Insert(ctx context.Context, req DirectInsert) (User, error) {
	password := req.Password
	if !isBcryptHash(password) {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return User{}, apperror.NewInternal("can not hash password", err)
		}
		password = hash
	}

	u := User{
		Username:    req.Username,
		Email:       req.Email,
		Password:    password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
		IsVerified:  req.IsVerified,
		DateJoined:  time.Now().UTC().Format(time.RFC3339),
	}

	id, err := s.store.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	return u, nil
}

// Authenticate resolves the identifier (username or email), verifies the
// password and issues a token. Unknown account and wrong password both
// come back as the same error so callers can not probe for accounts.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (auth.Token, error) {
	var (
		u   User
		err error
	)
	if emailRegex.MatchString(identifier) {
		u, err = s.store.GetByEmail(ctx, identifier)
	} else {
		u, err = s.store.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if apperror.KindOf(err) == apperror.NotFound {
			return auth.Token{}, apperror.NewAuth("invalid username or password")
		}
		return auth.Token{}, err
	}

	if !auth.VerifyPassword(password, u.Password) {
		return auth.Token{}, apperror.NewAuth("invalid username or password")
	}

	return s.tokens.Issue(u.ID, u.IsSuperuser)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.store.GetByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
