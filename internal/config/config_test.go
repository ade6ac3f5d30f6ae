package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "c2VjcmV0")
	t.Setenv("JWT_ACCESS_TOKEN_VALIDITY_SECONDS", "1800")
	t.Setenv("JWT_REFRESH_TOKEN_VALIDITY_SECONDS", "1209600")
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "c2VjcmV0", cfg.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.JWT.AccessExpiry)
	require.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshExpiry)
	require.Equal(t, 3, cfg.Redis.DB)
	require.Equal(t, 2*time.Second, cfg.Redis.OperationTimeout)
	require.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{
		"JWT_SECRET",
		"JWT_ACCESS_TOKEN_VALIDITY_SECONDS",
		"JWT_REFRESH_TOKEN_VALIDITY_SECONDS",
	} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := Load()
			require.ErrorContains(t, err, key)
		})
	}
}

func TestLoad_MalformedValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"JWT_ACCESS_TOKEN_VALIDITY_SECONDS", "thirty"},
		{"JWT_ACCESS_TOKEN_VALIDITY_SECONDS", "-5"},
		{"JWT_REFRESH_TOKEN_VALIDITY_SECONDS", "9223372036854775807"},
		{"JWT_REFRESH_TOKEN_VALIDITY_SECONDS", "9223372037"},
		{"TRUSTED_PROXIES", "10.0.0.0/33"},
		{"TRUSTED_PROXIES", "proxy.internal"},
		{"REDIS_DB", "zero"},
		{"REDIS_OPERATION_TIMEOUT", "2 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoad_RefreshMustOutliveAccess(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_TOKEN_VALIDITY_SECONDS", "60")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_LargestValidity(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_TOKEN_VALIDITY_SECONDS", "9223372036")

	cfg, err := Load()
	require.NoError(t, err)
	require.Positive(t, cfg.JWT.RefreshExpiry)
}

func TestLoad_TrustedProxies(t *testing.T) {
	setRequired(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7 ,,::ffff:198.51.100.1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.7/32"),
		netip.MustParsePrefix("198.51.100.1/32"),
	}, cfg.RateLimit.TrustedProxies)
}
