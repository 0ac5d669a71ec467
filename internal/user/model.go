package user

// User is the stored shape of an account. Password always holds the
// bcrypt hash once the record has passed through the service.
type User struct {
	ID          int64  `db:"id"`
	Username    string `db:"username"`
	Email       string `db:"email"`
	Password    string `db:"password"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	IsActive    bool   `db:"is_active"`
	IsSuperuser bool   `db:"is_superuser"`
	IsVerified  bool   `db:"is_verified"`
	DateJoined  string `db:"date_joined"`
}

// SensitiveUser is the trusted projection: full record including the
// password hash and privilege flags. Only superusers ever see it.
type SensitiveUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	IsVerified  bool   `json:"is_verified"`
}

// NonSensitiveUser is the public projection. It has no password field at
// all, so no serialization path can ever leak the hash.
type NonSensitiveUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
}

func (u User) Sensitive() SensitiveUser {
	return SensitiveUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Password:    u.Password,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
	}
}

func (u User) NonSensitive() NonSensitiveUser {
	return NonSensitiveUser{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
	}
}

// RegisterRequest is the self-service registration input. The
// confirmation field is validated and then discarded, never persisted.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// DirectInsert is the privileged insert input: an already shaped record
// supplied by a superuser, bypassing the registration validation chain.
type DirectInsert struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	IsVerified  bool   `json:"is_verified"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
