package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/ballotbox/ballotbox/internal/model"
)

const (
	// accountCachePrefix is the Redis key prefix for account snapshots.
	accountCachePrefix = "auth:user:"
	// accountCacheTTL bounds how long a deleted or demoted account can
	// still pass token verification.
	accountCacheTTL = 5 * time.Minute
)

// GetAccount retrieves a cached account snapshot by hashed email.
// Returns nil if not found (cache miss).
func (c *Cache) GetAccount(ctx context.Context, emailHash string) (*model.CachedAccount, error) {
	key := accountCachePrefix + emailHash

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	if len(result) == 0 {
		return nil, nil
	}

	return &model.CachedAccount{
		UserID:    result["user_id"],
		Email:     result["email"],
		Role:      result["role"],
		UpdatedAt: result["updated_at"],
	}, nil
}

// SetAccount caches an account snapshot for token verification.
func (c *Cache) SetAccount(ctx context.Context, emailHash string, user *model.User) error {
	key := accountCachePrefix + emailHash

	fields := map[string]any{
		"user_id":    user.ID,
		"email":      user.Email,
		"role":       string(user.Role),
		"updated_at": strconv.FormatInt(time.Now().Unix(), 10),
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, accountCacheTTL)

	_, err := pipe.Exec(ctx)
	return err
}

// DeleteAccount removes a cached account snapshot.
// Used when an account is deleted so its tokens stop verifying at once.
func (c *Cache) DeleteAccount(ctx context.Context, emailHash string) error {
	key := accountCachePrefix + emailHash
	return c.client.Del(ctx, key).Err()
}
