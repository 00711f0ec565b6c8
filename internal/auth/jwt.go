// Package auth verifies the bearer tokens issued by the hosting platform and
// turns them into a caller identity.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultLeeway = 30 * time.Second

// Roles with access to the admin endpoints.
const (
	RoleAdmin   = "admin"
	RoleService = "service_role"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidUser  = errors.New("token subject is not a user id")
)

type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

// Caller is an authenticated principal.
type Caller struct {
	UserID uuid.UUID
	Role   string
	Email  string
}

func (c *Caller) IsAdmin() bool {
	return c != nil && (c.Role == RoleAdmin || c.Role == RoleService)
}

type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: DefaultLeeway}
}

// Verify validates an HS256 token and returns the caller it identifies.
func (v *Verifier) Verify(tokenString string) (*Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidUser
	}
	return &Caller{UserID: userID, Role: claims.Role, Email: claims.Email}, nil
}

// Issue signs a token for caller. Used by tests and local tooling.
func (v *Verifier) Issue(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:  caller.Role,
		Email: caller.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
