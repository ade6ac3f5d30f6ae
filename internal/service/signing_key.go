package service

import (
	"encoding/base64"
	"strings"
)

// MinSigningKeyLength is the smallest HS512 key accepted, in bytes.
const MinSigningKeyLength = 64

// SigningKey holds the HMAC key material. It is built once at startup and
// passed by value; the bytes are never handed out for mutation.
type SigningKey struct {
	key []byte
}

// NewSigningKey decodes a base64 secret into a signing key.
func NewSigningKey(secret string) (SigningKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return SigningKey{}, &ConfigurationError{Field: "JWT_SECRET", Message: "secret is empty"}
	}

	keyBytes, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return SigningKey{}, &ConfigurationError{Field: "JWT_SECRET", Message: "secret is not valid base64", Err: err}
	}

	if len(keyBytes) == 0 {
		return SigningKey{}, &ConfigurationError{Field: "JWT_SECRET", Message: "secret decodes to an empty key"}
	}

	if len(keyBytes) < MinSigningKeyLength {
		return SigningKey{}, &ConfigurationError{
			Field:   "JWT_SECRET",
			Message: "secret must decode to at least 64 bytes (512 bits) for HS512",
		}
	}

	return SigningKey{key: keyBytes}, nil
}

// bytes returns a copy so jwt internals never share the backing array.
func (k SigningKey) bytes() []byte {
	return append([]byte(nil), k.key...)
}
