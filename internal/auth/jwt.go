package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess = "access"

	RoleUser     = "user"
	RoleOperator = "operator"
)

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
}

// Claims bind a bearer to the ledger principal its calls are made as.
type Claims struct {
	Principal string `json:"prn"`
	Role      string `json:"role"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

func NewJWTManager(issuer, audience, signingKey string) *JWTManager {
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(signingKey),
	}
}

func (m *JWTManager) Mint(principal, role string, ttl time.Duration) (string, error) {
	if principal == "" {
		return "", errors.New("missing principal")
	}
	if role == "" {
		role = RoleUser
	}
	now := time.Now().UTC()
	claims := Claims{
		Principal: principal,
		Role:      role,
		Type:      TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principal,
			Issuer:    m.issuer,
			Audience:  []string{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}
	ok := false
	for _, aud := range claims.Audience {
		if aud == m.audience {
			ok = true
			break
		}
	}
	if !ok {
		return nil, errors.New("invalid audience")
	}
	if claims.Principal == "" {
		return nil, errors.New("missing principal")
	}
	return claims, nil
}
