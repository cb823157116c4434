package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired means the token was well-formed and correctly signed
	// but its expiry has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid covers everything else: bad signature, wrong signing
	// method, structural corruption.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims binds a token to a single customer.
type Claims struct {
	jwt.RegisteredClaims
	CustomerID uint `json:"customer_id"`
}

// Manager issues and verifies customer bearer tokens. It holds the signing
// secret so nothing else in the process needs access to it.
type Manager struct {
	secret []byte
	expiry time.Duration
}

func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{secret: []byte(secret), expiry: expiry}
}

// Issue creates a signed HS256 token for the given customer.
func (m *Manager) Issue(customerID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		CustomerID: customerID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks the signature first, then expiry, and returns the customer id
// the token was issued for.
func (m *Manager) Verify(tokenString string) (uint, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.CustomerID == 0 {
		return 0, ErrTokenInvalid
	}

	return claims.CustomerID, nil
}
