package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"virtualboard/internal/account"
)

// Token is a signed credential and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims represents JWT payload.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into a request identity.
func (c Claims) Identity() account.Identity {
	return account.Identity{ID: c.Subject, Role: account.Role(c.Role), Email: c.Email, Name: c.Name}
}

// Issue signs a token for id valid for ttl.
func Issue(id account.Identity, issuer, key string, ttl time.Duration) (Token, error) {
	if id.ID == "" || !id.Role.Valid() {
		return Token{}, errors.New("identity requires id and role")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Role:  string(id.Role),
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.Subject == "" || !account.Role(claims.Role).Valid() {
		return Claims{}, errors.New("token missing subject or role")
	}
	return *claims, nil
}
