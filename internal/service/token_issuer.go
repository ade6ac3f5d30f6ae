package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/anabada/anabada/internal/config"
	"github.com/anabada/anabada/internal/models"
	"github.com/anabada/anabada/internal/repository"
	"github.com/sirupsen/logrus"
)

// refreshTokenSize is the number of random bytes in a refresh token (256 bits).
const refreshTokenSize = 32

// RefreshTokenStore persists refresh token records with a TTL.
type RefreshTokenStore interface {
	Store(ctx context.Context, tokenData models.RefreshTokenData, ttl time.Duration) error
	Take(ctx context.Context, token string) (*models.RefreshTokenData, error)
	Delete(ctx context.Context, token string) error
}

// AuthorityLoader resolves the current authorities of a subject when a
// refresh token is exchanged.
type AuthorityLoader interface {
	LoadAuthorities(ctx context.Context, subject string) ([]string, error)
}

type TokenIssuer struct {
	codec         *TokenCodec
	store         RefreshTokenStore
	authorities   AuthorityLoader
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	logger        *logrus.Logger
}

func NewTokenIssuer(
	codec *TokenCodec,
	store RefreshTokenStore,
	authorities AuthorityLoader,
	cfg *config.JWTConfig,
	logger *logrus.Logger,
) *TokenIssuer {
	return &TokenIssuer{
		codec:         codec,
		store:         store,
		authorities:   authorities,
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		logger:        logger,
	}
}

// Issue mints an access token and a refresh token for subject. The refresh
// record is written before anything is returned; if that write fails no
// tokens are handed out.
func (i *TokenIssuer) Issue(ctx context.Context, subject string, authorities []string) (*models.TokenPair, error) {
	now := i.codec.now()

	accessToken, err := i.codec.Encode(Claims{
		Subject:     subject,
		Authorities: authorities,
		ExpiresAt:   now.Add(i.accessExpiry),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	record := models.RefreshTokenData{
		Token:     refreshToken,
		Subject:   subject,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(i.refreshExpiry).UTC(),
	}

	if err := i.store.Store(ctx, record, i.refreshExpiry); err != nil {
		i.logger.WithError(err).WithField("subject", subject).Error("Failed to persist refresh token")
		return nil, fmt.Errorf("%w: %w", ErrTokenPersistence, err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(i.accessExpiry.Seconds()),
	}, nil
}

// Exchange consumes a refresh token and issues a new pair for its subject.
// The record is removed with a single GETDEL so a token can be exchanged at
// most once.
func (i *TokenIssuer) Exchange(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenNotFound
	}

	record, err := i.store.Take(ctx, refreshToken)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		i.logger.WithError(err).Warn("Refresh token lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	now := i.codec.now()
	if record.Expired(now) {
		return nil, ErrRefreshTokenNotFound
	}

	authorities, err := i.authorities.LoadAuthorities(ctx, record.Subject)
	if err != nil {
		if !errors.Is(err, ErrAccountDisabled) && !errors.Is(err, ErrInvalidCredentials) {
			i.restore(ctx, record, now)
		}
		return nil, err
	}

	pair, err := i.Issue(ctx, record.Subject, authorities)
	if err != nil {
		i.restore(ctx, record, now)
		return nil, err
	}

	i.logger.WithField("subject", record.Subject).Debug("Refresh token exchanged")
	return pair, nil
}

// Revoke deletes a refresh token. Unknown tokens are ignored.
func (i *TokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := i.store.Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return nil
}

// restore puts a consumed record back with its remaining lifetime so the
// client can retry after a transient failure.
func (i *TokenIssuer) restore(ctx context.Context, record *models.RefreshTokenData, now time.Time) {
	ttl := record.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return
	}

	if err := i.store.Store(context.WithoutCancel(ctx), *record, ttl); err != nil {
		i.logger.WithError(err).WithField("subject", record.Subject).Error("Failed to restore refresh token")
	}
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
