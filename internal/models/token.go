package models

import "time"

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshTokenData is the server-side record behind an opaque refresh token.
type RefreshTokenData struct {
	Token     string    `json:"refresh_token"`
	Subject   string    `json:"email"`
	CreatedAt time.Time `json:"created_date"`
	ExpiresAt time.Time `json:"expiration_date"`
}

// Expired reports whether the record is past its expiration at now.
func (d *RefreshTokenData) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}
