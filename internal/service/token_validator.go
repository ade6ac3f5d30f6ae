package service

import (
	"github.com/anabada/anabada/internal/models"
	"github.com/sirupsen/logrus"
)

// TokenValidator verifies access tokens. It never touches the store, so it is
// safe to share across goroutines.
type TokenValidator struct {
	codec  *TokenCodec
	logger *logrus.Logger
}

func NewTokenValidator(codec *TokenCodec, logger *logrus.Logger) *TokenValidator {
	return &TokenValidator{
		codec:  codec,
		logger: logger,
	}
}

// Authenticate verifies token and returns the principal it was issued for.
// Errors are *TokenError values from the codec.
func (v *TokenValidator) Authenticate(token string) (models.Principal, error) {
	claims, err := v.codec.Decode(token)
	if err != nil {
		return models.Principal{}, err
	}

	authorities := claims.Authorities
	if authorities == nil {
		authorities = []string{}
	}

	return models.Principal{
		Subject:     claims.Subject,
		Authorities: authorities,
	}, nil
}

func (v *TokenValidator) Validate(token string) bool {
	if _, err := v.codec.Decode(token); err != nil {
		kind, _ := TokenErrorKindOf(err)
		v.logger.WithError(err).WithField("reason", kind.String()).Debug("Token validation failed")
		return false
	}
	return true
}
