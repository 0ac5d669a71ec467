package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/Gurjant002/api-g-books/internal/apperror"
)

// Claims carried by every access token.
type Claims struct {
	UserID      int64 `json:"sub,string"`
	IsSuperuser bool  `json:"superuser"`
	jwt.StandardClaims
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"token_expiration"`
}

// TokenManager signs and parses HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Issue(userID int64, superuser bool) (Token, error) {
	expiresAt := time.Now().UTC().Add(m.ttl)
	claims := Claims{
		UserID:      userID,
		IsSuperuser: superuser,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  time.Now().UTC().Unix(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, apperror.NewInternal("can not sign token", err)
	}

	return Token{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

// Parse validates the signature and expiry and returns the claims.
// Every failure mode is reported as the same invalid-token error.
func (m *TokenManager) Parse(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperror.NewAuth("invalid token")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, apperror.NewAuth("invalid token")
	}
	return claims, nil
}
