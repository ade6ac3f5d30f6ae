package service

import (
	"errors"
	"fmt"
)

// Token verification failures. A *TokenError matches exactly one of these
// with errors.Is.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrBadSignature     = errors.New("token signature is invalid")
	ErrExpiredToken     = errors.New("token expired")
	ErrUnsupportedToken = errors.New("unsupported token")
)

var (
	ErrInvalidClaims        = errors.New("invalid claims")
	ErrTokenPersistence     = errors.New("failed to persist refresh token")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrStoreUnavailable     = errors.New("token store unavailable")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrMemberExists         = errors.New("member already exists")
)

type TokenErrorKind int

const (
	KindMalformed TokenErrorKind = iota + 1
	KindBadSignature
	KindExpired
	KindUnsupported
)

func (k TokenErrorKind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformedToken
	case KindBadSignature:
		return ErrBadSignature
	case KindExpired:
		return ErrExpiredToken
	case KindUnsupported:
		return ErrUnsupportedToken
	}
	return ErrMalformedToken
}

func (k TokenErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBadSignature:
		return "bad_signature"
	case KindExpired:
		return "expired"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// TokenError is returned by TokenCodec.Decode. Kind says why verification
// failed; Err keeps the underlying parser error for logs.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *TokenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

func newTokenError(kind TokenErrorKind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

// ConfigurationError is a fatal startup error.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error on %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// TokenErrorKindOf returns the kind of a token verification failure, or
// false when err is not one.
func TokenErrorKindOf(err error) (TokenErrorKind, bool) {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Kind, true
	}
	return 0, false
}
