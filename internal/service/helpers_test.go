package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anabada/anabada/internal/config"
	"github.com/anabada/anabada/internal/models"
	"github.com/anabada/anabada/internal/repository"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), MinSigningKeyLength))

func testKey(t *testing.T, fill byte) SigningKey {
	t.Helper()
	key, err := NewSigningKey(base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{fill}, MinSigningKeyLength)))
	require.NoError(t, err)
	return key
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// tamperLastChar swaps the final signature character for one that decodes to
// different bytes (the last base64 char of an HS512 signature carries two
// data bits).
func tamperLastChar(token string) string {
	last := token[len(token)-1]
	replacement := byte('A')
	if strings.IndexByte(base64URLAlphabet, last)>>4 == 0 {
		replacement = 'w'
	}
	return token[:len(token)-1] + string(replacement)
}

type staticAuthorities struct {
	mu          sync.Mutex
	authorities map[string][]string
	err         error
}

func (s *staticAuthorities) LoadAuthorities(_ context.Context, subject string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	authorities, ok := s.authorities[subject]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return authorities, nil
}

func (s *staticAuthorities) set(subject string, authorities ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authorities == nil {
		s.authorities = map[string][]string{}
	}
	s.authorities[subject] = authorities
}

// memStore is a RefreshTokenStore whose individual operations can be made
// to fail.
type memStore struct {
	mu       sync.Mutex
	records  map[string]models.RefreshTokenData
	ttls     map[string]time.Duration
	storeErr error
	takeErr  error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		records: map[string]models.RefreshTokenData{},
		ttls:    map[string]time.Duration{},
	}
}

func (s *memStore) Store(_ context.Context, data models.RefreshTokenData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.writes++
	s.records[data.Token] = data
	s.ttls[data.Token] = ttl
	return nil
}

func (s *memStore) Take(_ context.Context, token string) (*models.RefreshTokenData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.takeErr != nil {
		return nil, s.takeErr
	}
	data, ok := s.records[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.records, token)
	delete(s.ttls, token)
	return &data, nil
}

func (s *memStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	delete(s.ttls, token)
	return nil
}

func (s *memStore) has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[token]
	return ok
}

func testJWTConfig(access, refresh time.Duration) *config.JWTConfig {
	return &config.JWTConfig{
		Secret:        testSecret,
		AccessExpiry:  access,
		RefreshExpiry: refresh,
	}
}
