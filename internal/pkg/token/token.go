package token

import (
	"errors"
	"time"

	"github.com/glaciervault/glaciervault/internal/pkg/env"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated user identity inside a signed JWT.
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"name"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"adm"`
	jwt.RegisteredClaims
}

func secret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", ""))
}

// Issue signs a token for the given user, valid for 24 hours.
func Issue(userID uint, username, email string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "glaciervault",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(defaultTTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret())
}

// Parse validates the token signature and expiry and returns its claims.
func Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
