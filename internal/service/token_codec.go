package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anabada/anabada/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authoritiesClaim = "auth"
	tokenTypeJWT     = "JWT"
)

// Claims is the payload carried by an access token.
type Claims struct {
	Subject     string
	Authorities []string
	ExpiresAt   time.Time
}

// accessClaims is the wire form: authorities travel as one comma-joined claim.
type accessClaims struct {
	Authorities string `json:"auth"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS512 access tokens.
type TokenCodec struct {
	key SigningKey
	now func() time.Time
}

func NewTokenCodec(key SigningKey) *TokenCodec {
	return &TokenCodec{key: key, now: time.Now}
}

// WithClock returns a codec that reads the current time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{key: c.key, now: now}
}

func (c *TokenCodec) Encode(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidClaims)
	}
	if !claims.ExpiresAt.After(c.now()) {
		return "", fmt.Errorf("%w: expiration must be in the future", ErrInvalidClaims)
	}
	// Authorities travel comma-joined, so each entry must split back unchanged.
	for _, authority := range claims.Authorities {
		if authority == "" || strings.Contains(authority, ",") || strings.TrimSpace(authority) != authority {
			return "", fmt.Errorf("%w: authority %q cannot be encoded", ErrInvalidClaims, authority)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &accessClaims{
		Authorities: models.JoinAuthorities(claims.Authorities),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	token.Header["typ"] = tokenTypeJWT

	signed, err := token.SignedString(c.key.bytes())
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) Decode(tokenString string) (Claims, error) {
	var wire accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &wire, c.keyFunc,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}

	if wire.Subject == "" {
		return Claims{}, newTokenError(KindMalformed, errors.New("subject claim is missing"))
	}

	return Claims{
		Subject:     wire.Subject,
		Authorities: models.SplitAuthorities(wire.Authorities),
		ExpiresAt:   wire.ExpiresAt.Time,
	}, nil
}

// keyFunc only hands out the key for HS512 JWTs; anything else becomes
// jwt.ErrTokenUnverifiable.
func (c *TokenCodec) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS512 {
		return nil, fmt.Errorf("%w: signing method %v", ErrUnsupportedToken, token.Header["alg"])
	}
	if typ, ok := token.Header["typ"]; ok && typ != tokenTypeJWT {
		return nil, fmt.Errorf("%w: token type %v", ErrUnsupportedToken, typ)
	}
	return c.key.bytes(), nil
}

// classify maps golang-jwt errors onto the four verification kinds.
func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newTokenError(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return newTokenError(KindUnsupported, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newTokenError(KindBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newTokenError(KindExpired, err)
	}
	return newTokenError(KindMalformed, err)
}
