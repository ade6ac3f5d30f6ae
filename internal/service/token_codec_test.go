package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var tokenSentinels = []error{ErrMalformedToken, ErrBadSignature, ErrExpiredToken, ErrUnsupportedToken}

// requireKind asserts err is a *TokenError of kind want and matches only
// that kind's sentinel.
func requireKind(t *testing.T, err error, want TokenErrorKind) {
	t.Helper()

	kind, ok := TokenErrorKindOf(err)
	require.True(t, ok, "expected *TokenError, got %v", err)
	require.Equal(t, want, kind, "error: %v", err)

	for _, sentinel := range tokenSentinels {
		if sentinel == want.sentinel() {
			require.ErrorIs(t, err, sentinel)
		} else {
			require.NotErrorIs(t, err, sentinel)
		}
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(testKey(t, 'k'))

	tests := []struct {
		name        string
		subject     string
		authorities []string
	}{
		{"single authority", "ad2d@naver.com", []string{"USER_ROLE"}},
		{"ordered authorities", "admin@naver.com", []string{"USER_ROLE", "ADMIN_ROLE", "AUDIT_ROLE"}},
		{"no authorities", "guest@naver.com", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := time.Now().Add(30 * time.Minute)
			token, err := codec.Encode(Claims{Subject: tt.subject, Authorities: tt.authorities, ExpiresAt: exp})
			require.NoError(t, err)
			require.Len(t, strings.Split(token, "."), 3)

			claims, err := codec.Decode(token)
			require.NoError(t, err)
			require.Equal(t, tt.subject, claims.Subject)
			require.Equal(t, tt.authorities, claims.Authorities)
			require.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
		})
	}
}

func TestTokenCodec_Header(t *testing.T) {
	codec := NewTokenCodec(testKey(t, 'k'))
	token, err := codec.Encode(Claims{Subject: "ad2d@naver.com", ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, "HS512", parsed.Header["alg"])
	require.Equal(t, "JWT", parsed.Header["typ"])

	mapClaims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "ad2d@naver.com", mapClaims["sub"])
	require.Equal(t, "", mapClaims["auth"])
}

func TestTokenCodec_EncodeRejectsInvalidClaims(t *testing.T) {
	clock := newFakeClock()
	codec := NewTokenCodec(testKey(t, 'k')).WithClock(clock.Now)

	_, err := codec.Encode(Claims{Subject: "", ExpiresAt: clock.Now().Add(time.Minute)})
	require.ErrorIs(t, err, ErrInvalidClaims)

	_, err = codec.Encode(Claims{Subject: "ad2d@naver.com", ExpiresAt: clock.Now()})
	require.ErrorIs(t, err, ErrInvalidClaims)

	_, err = codec.Encode(Claims{Subject: "ad2d@naver.com", ExpiresAt: clock.Now().Add(-time.Minute)})
	require.ErrorIs(t, err, ErrInvalidClaims)

	for _, authorities := range [][]string{
		{"ROLE,ADMIN"},
		{" USER_ROLE"},
		{"USER_ROLE "},
		{"USER_ROLE", ""},
		{""},
	} {
		_, err := codec.Encode(Claims{Subject: "ad2d@naver.com", Authorities: authorities, ExpiresAt: clock.Now().Add(time.Minute)})
		require.ErrorIs(t, err, ErrInvalidClaims, "authorities %q", authorities)
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	clock := newFakeClock()
	codec := NewTokenCodec(testKey(t, 'k')).WithClock(clock.Now)

	token, err := codec.Encode(Claims{
		Subject:     "ad2d@naver.com",
		Authorities: []string{"USER_ROLE"},
		ExpiresAt:   clock.Now().Add(time.Second),
	})
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.NoError(t, err)

	t.Run("at the expiration instant", func(t *testing.T) {
		at := clock.Now().Add(time.Second)
		_, err := codec.WithClock(func() time.Time { return at }).Decode(token)
		requireKind(t, err, KindExpired)
	})

	t.Run("after the expiration instant", func(t *testing.T) {
		clock.Advance(2 * time.Second)
		_, err := codec.Decode(token)
		requireKind(t, err, KindExpired)
	})
}

func TestTokenCodec_BadSignature(t *testing.T) {
	signer := NewTokenCodec(testKey(t, 'a'))
	token, err := signer.Encode(Claims{Subject: "ad2d@naver.com", ExpiresAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	t.Run("different key", func(t *testing.T) {
		_, err := NewTokenCodec(testKey(t, 'b')).Decode(token)
		requireKind(t, err, KindBadSignature)
	})

	t.Run("altered trailing character", func(t *testing.T) {
		_, err := signer.Decode(tamperLastChar(token))
		requireKind(t, err, KindBadSignature)
	})

	t.Run("altered payload", func(t *testing.T) {
		other, err := signer.Encode(Claims{Subject: "admin@naver.com", ExpiresAt: time.Now().Add(time.Minute)})
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		otherParts := strings.Split(other, ".")
		forged := parts[0] + "." + otherParts[1] + "." + parts[2]

		_, err = signer.Decode(forged)
		requireKind(t, err, KindBadSignature)
	})

	t.Run("expired and wrong key reports signature", func(t *testing.T) {
		clock := newFakeClock()
		expired, err := signer.WithClock(clock.Now).Encode(Claims{Subject: "ad2d@naver.com", ExpiresAt: clock.Now().Add(time.Second)})
		require.NoError(t, err)

		_, err = NewTokenCodec(testKey(t, 'b')).Decode(expired)
		requireKind(t, err, KindBadSignature)
	})
}

func TestTokenCodec_Malformed(t *testing.T) {
	key := testKey(t, 'k')
	codec := NewTokenCodec(key)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub":  "ad2d@naver.com",
		"auth": "USER_ROLE",
	}).SignedString(key.bytes())
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"auth": "USER_ROLE",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString(key.bytes())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"invalid base64 header", "!!!.e30.sig"},
		{"header not json", "bm90LWpzb24.e30.c2ln"},
		{"missing exp", noExp},
		{"missing subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			requireKind(t, err, KindMalformed)
		})
	}
}

func TestTokenCodec_Unsupported(t *testing.T) {
	key := testKey(t, 'k')
	codec := NewTokenCodec(key)
	claims := jwt.MapClaims{
		"sub":  "ad2d@naver.com",
		"auth": "USER_ROLE",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.bytes())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	jwsTyped := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	jwsTyped.Header["typ"] = "JWS"
	wrongType, err := jwsTyped.SignedString(key.bytes())
	require.NoError(t, err)

	unknownAlg := "eyJhbGciOiJYWVoiLCJ0eXAiOiJKV1QifQ." + strings.Split(hs256, ".")[1] + ".c2ln"

	tests := []struct {
		name  string
		token string
	}{
		{"HS256", hs256},
		{"none", none},
		{"wrong typ", wrongType},
		{"unknown alg", unknownAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			requireKind(t, err, KindUnsupported)
		})
	}
}

func TestTokenError(t *testing.T) {
	cause := errors.New("boom")
	err := newTokenError(KindExpired, cause)

	require.ErrorIs(t, err, ErrExpiredToken)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "token expired")

	_, ok := TokenErrorKindOf(errors.New("plain"))
	require.False(t, ok)
}
