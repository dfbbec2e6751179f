// Package cache provides the Redis-backed availability cache for stock reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ventari/internal/core/id"
	"ventari/internal/domain/stock"
	"ventari/pkg/logger"
)

// DefaultTTL bounds staleness when an invalidation is lost.
const DefaultTTL = 5 * time.Minute

// AvailabilityCache caches per-product stock records. Mutations invalidate;
// the database stays the source of truth.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates an availability cache.
func New(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func key(productID id.ID) string {
	return "stock:product:" + productID.String()
}

// Get returns cached records for a product. A miss is not an error.
func (c *AvailabilityCache) Get(ctx context.Context, productID id.ID) ([]stock.StockRecord, bool, error) {
	data, err := c.client.Get(ctx, key(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var records []stock.StockRecord
	if err := json.Unmarshal(data, &records); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		_ = c.client.Del(ctx, key(productID)).Err()
		return nil, false, nil
	}

	return records, true, nil
}

// Set stores records for a product.
func (c *AvailabilityCache) Set(ctx context.Context, productID id.ID, records []stock.StockRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}

	if err := c.client.Set(ctx, key(productID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

// InvalidateProducts drops cached records for the given products.
func (c *AvailabilityCache) InvalidateProducts(ctx context.Context, productIDs ...id.ID) error {
	if len(productIDs) == 0 {
		return nil
	}

	keys := make([]string, len(productIDs))
	for i, pid := range productIDs {
		keys[i] = key(pid)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}

	logger.Debug(ctx, "availability cache invalidated", "products", len(keys))
	return nil
}

// Ensure interface compliance.
var _ stock.Invalidator = (*AvailabilityCache)(nil)
