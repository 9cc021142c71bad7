package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrIncompleteClaims token firmado sin operador, empresa o rol.
var ErrIncompleteClaims = errors.New("jwt: claims de operador incompletos")

// Operator identidad del operador que viaja en el token. El usuario va en sub.
type Operator struct {
	UserID    string
	CompanyID string
	Role      string
}

type operatorClaims struct {
	jwt.RegisteredClaims
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
	jwt.WithIssuedAt(),
)

// Generate firma un token HS256 para op con vigencia ttl.
func Generate(secret, issuer string, op Operator, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if op.UserID == "" || op.CompanyID == "" || op.Role == "" {
		return "", ErrIncompleteClaims
	}
	now := time.Now()
	claims := operatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   op.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: op.CompanyID,
		Role:      op.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma, algoritmo y expiración, y devuelve el operador del token.
func Parse(secret, tokenString string) (Operator, error) {
	if secret == "" {
		return Operator{}, fmt.Errorf("jwt: secret vacío")
	}
	var claims operatorClaims
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return Operator{}, err
	}
	op := Operator{UserID: claims.Subject, CompanyID: claims.CompanyID, Role: claims.Role}
	if op.UserID == "" || op.CompanyID == "" || op.Role == "" {
		return Operator{}, ErrIncompleteClaims
	}
	return op, nil
}
