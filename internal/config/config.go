package config

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	DynamoDB  DynamoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint         string
	Password         string
	DB               int
	OperationTimeout time.Duration
}

// JWTConfig holds the signing secret (base64) and the token validity windows.
// All three are required; the service refuses to start without them.
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// RateLimitConfig limits login attempts per client IP. X-Forwarded-For is
// only honoured when the peer is in TrustedProxies.
type RateLimitConfig struct {
	LoginLimit     int
	LoginWindow    time.Duration
	TrustedProxies []netip.Prefix
}

// maxValiditySeconds keeps validity windows representable as a time.Duration.
const maxValiditySeconds = math.MaxInt64 / int64(time.Second)

func Load() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "ap-northeast-2"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "AnabadaTable"),
		},
		Redis: RedisConfig{
			Endpoint:         getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password:         getEnv("REDIS_PASSWORD", ""),
			DB:               l.int("REDIS_DB", 0),
			OperationTimeout: l.duration("REDIS_OPERATION_TIMEOUT", 2*time.Second),
		},
		JWT: JWTConfig{
			Secret:        l.required("JWT_SECRET"),
			AccessExpiry:  l.requiredSeconds("JWT_ACCESS_TOKEN_VALIDITY_SECONDS"),
			RefreshExpiry: l.requiredSeconds("JWT_REFRESH_TOKEN_VALIDITY_SECONDS"),
		},
		RateLimit: RateLimitConfig{
			LoginLimit:     l.int("LOGIN_RATE_LIMIT", 10),
			LoginWindow:    l.duration("LOGIN_RATE_WINDOW", time.Minute),
			TrustedProxies: l.prefixes("TRUSTED_PROXIES"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if l.err != nil {
		return nil, l.err
	}

	if cfg.JWT.RefreshExpiry <= cfg.JWT.AccessExpiry {
		return nil, fmt.Errorf("JWT_REFRESH_TOKEN_VALIDITY_SECONDS must be greater than JWT_ACCESS_TOKEN_VALIDITY_SECONDS")
	}

	return cfg, nil
}

// loader keeps the first parse failure so Load can report it after reading
// every variable.
type loader struct {
	err error
}

func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *loader) required(key string) string {
	value := os.Getenv(key)
	if value == "" {
		l.fail(fmt.Errorf("%s environment variable is required", key))
	}
	return value
}

func (l *loader) requiredSeconds(key string) time.Duration {
	value := l.required(key)
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		l.fail(fmt.Errorf("%s must be an integer number of seconds: %w", key, err))
		return 0
	}
	if seconds <= 0 {
		l.fail(fmt.Errorf("%s must be positive, got %d", key, seconds))
		return 0
	}
	if seconds > maxValiditySeconds {
		l.fail(fmt.Errorf("%s must be at most %d, got %d", key, maxValiditySeconds, seconds))
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// prefixes parses a comma-separated list of IPs and CIDRs. A bare IP becomes
// a single-address prefix.
func (l *loader) prefixes(key string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(os.Getenv(key), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				l.fail(fmt.Errorf("%s has an invalid CIDR %q: %w", key, entry, err))
				continue
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			l.fail(fmt.Errorf("%s has an invalid IP %q: %w", key, entry, err))
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}

func (l *loader) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		l.fail(fmt.Errorf("%s must be an integer: %w", key, err))
		return defaultValue
	}
	return intValue
}

func (l *loader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		l.fail(fmt.Errorf("%s must be a duration: %w", key, err))
		return defaultValue
	}
	return duration
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
