// Package cache keeps display snapshots of products in Redis so cart reads do
// not hit the products table on every request. Order creation never reads
// from it; checkout prices always come from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"roomservice/internal/domain"
)

const productKeyPrefix = "roomservice:product:"

// Products is the product snapshot cache. Implementations fail open: a cache
// error is logged and reported as a miss.
type Products interface {
	GetMany(ctx context.Context, ids []int64) (hits map[int64]domain.Product, misses []int64)
	SetMany(ctx context.Context, products []domain.Product)
	Invalidate(ctx context.Context, ids ...int64)
}

type RedisProducts struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisProducts(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisProducts {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisProducts{rdb: rdb, ttl: ttl, log: log}
}

// Dial connects to addr and pings it once.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func productKey(id int64) string {
	return productKeyPrefix + strconv.FormatInt(id, 10)
}

func (c *RedisProducts) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, []int64) {
	hits := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return hits, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("product cache read failed", zap.Error(err))
		}
		return hits, ids
	}

	var misses []int64
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var p domain.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			c.log.Warn("dropping unreadable cached product", zap.Int64("product_id", ids[i]), zap.Error(err))
			misses = append(misses, ids[i])
			continue
		}
		hits[ids[i]] = p
	}
	return hits, misses
}

func (c *RedisProducts) SetMany(ctx context.Context, products []domain.Product) {
	if len(products) == 0 {
		return
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range products {
			b, err := json.Marshal(p)
			if err != nil {
				return err
			}
			pipe.Set(ctx, productKey(p.ID), b, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("product cache write failed", zap.Int("count", len(products)), zap.Error(err))
	}
}

func (c *RedisProducts) Invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("product cache invalidation failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}
