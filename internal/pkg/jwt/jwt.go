// Package jwt issues and checks the portal access tokens minted after a
// successful login OTP.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSigningKeyTooShort = errors.New("jwt: HS512 key must be at least 64 bytes")
	ErrTokenExpired       = errors.New("jwt: token expired")
	ErrInvalidToken       = errors.New("jwt: invalid token")
)

type JWT interface {
	// Generate signs an access token for the account and its portal role.
	Generate(uid int64, email, role string) (string, error)
	Verify(token string) (Claims, error)
	TTL() time.Duration
}

type Config struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
	Clock     interface{ Now() time.Time }
	// UUID generates the jti claim.
	UUID interface{ Generate() string }
}

// Claims are the registered claims plus the portal identity. UserID is a
// string on the wire because snowflake ids overflow JavaScript numbers.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id,string"`
	Email  string `json:"user_email"`
	Role   string `json:"role"`
}

type authKey struct{}

// GetAuth returns the claims of the authenticated caller, or nil.
func GetAuth(ctx context.Context) *Claims {
	if clm, ok := ctx.Value(authKey{}).(Claims); ok {
		return &clm
	}
	return nil
}

func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authKey{}, clm)
}
