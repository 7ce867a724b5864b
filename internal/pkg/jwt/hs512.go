package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minHS512KeyLen = 64

type HS512 struct {
	cfg Config
}

func NewHS512(cfg Config) (*HS512, error) {
	if len(cfg.Secret) < minHS512KeyLen {
		return nil, ErrSigningKeyTooShort
	}
	return &HS512{cfg: cfg}, nil
}

func (h *HS512) TTL() time.Duration { return h.cfg.TTL }

func (h *HS512) Generate(uid int64, email, role string) (string, error) {
	now := h.cfg.Clock.Now()

	return jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        h.cfg.UUID.Generate(),
			Subject:   strconv.FormatInt(uid, 10),
			Issuer:    h.cfg.Issuer,
			Audience:  h.cfg.Audiences,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.cfg.TTL)),
		},
		UserID: uid,
		Email:  email,
		Role:   role,
	}).SignedString(h.cfg.Secret)
}

func (h *HS512) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return h.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(h.cfg.Issuer),
		jwt.WithAudience(h.cfg.Audiences...),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.cfg.Clock.Now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, errors.Join(ErrInvalidToken, err)
	case !parsed.Valid:
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
