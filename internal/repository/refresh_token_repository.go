package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anabada/anabada/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const refreshTokenKeyPrefix = "refreshToken:"

var ErrNotFound = errors.New("not found")

// RefreshTokenRepository keeps refresh token records in Redis. Expiry is
// enforced by the key TTL.
type RefreshTokenRepository struct {
	client  redis.Cmdable
	timeout time.Duration
	logger  *logrus.Logger
}

func NewRefreshTokenRepository(client redis.Cmdable, timeout time.Duration, logger *logrus.Logger) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

func RefreshTokenKey(token string) string {
	return refreshTokenKeyPrefix + token
}

// Store writes the record with the given TTL.
func (r *RefreshTokenRepository) Store(ctx context.Context, tokenData models.RefreshTokenData, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("refresh token ttl must be positive, got %s", ttl)
	}

	dataJSON, err := json.Marshal(tokenData)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Set(ctx, RefreshTokenKey(tokenData.Token), dataJSON, ttl).Err(); err != nil {
		r.logger.WithError(err).Error("Failed to store refresh token")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// Take atomically reads and deletes a record (GETDEL). Of several concurrent
// callers for the same token at most one gets the record. A record that no
// longer decodes is already gone, so it is reported as ErrNotFound.
func (r *RefreshTokenRepository) Take(ctx context.Context, token string) (*models.RefreshTokenData, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	dataJSON, err := r.client.GetDel(ctx, RefreshTokenKey(token)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take refresh token: %w", err)
	}

	tokenData, err := decodeRefreshToken(dataJSON)
	if err != nil {
		r.logger.WithError(err).Warn("Discarded undecodable refresh token record")
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return tokenData, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, RefreshTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}

	return nil
}

func (r *RefreshTokenRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func decodeRefreshToken(dataJSON string) (*models.RefreshTokenData, error) {
	var tokenData models.RefreshTokenData
	if err := json.Unmarshal([]byte(dataJSON), &tokenData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}
	return &tokenData, nil
}
