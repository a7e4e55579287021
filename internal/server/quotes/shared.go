package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/moneo/internal/server/models"
	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by SharedCache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// SharedCache is a second-level quote cache shared between server instances.
// Entries keep the expiry they were written with.
type SharedCache interface {
	Get(ctx context.Context, symbol string) (*models.Quote, time.Time, error)
	Set(ctx context.Context, symbol string, q *models.Quote, expiresAt time.Time) error
}

const redisKeyPrefix = "moneo:quote:"

// RedisCache stores quotes as JSON under moneo:quote:<symbol> with a TTL
// matching the entry expiry.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

type redisEntry struct {
	Quote     *models.Quote `json:"quote"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client, prefix: redisKeyPrefix, now: time.Now}
}

// DialRedis opens a client and checks it answers PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (*models.Quote, time.Time, error) {
	data, err := c.client.Get(ctx, c.prefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, ErrCacheMiss
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return decodeEntry(data)
}

func (c *RedisCache) Set(ctx context.Context, symbol string, q *models.Quote, expiresAt time.Time) error {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(redisEntry{Quote: q, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+symbol, data, ttl).Err()
}

func decodeEntry(data []byte) (*models.Quote, time.Time, error) {
	var e redisEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, time.Time{}, err
	}
	if e.Quote == nil {
		return nil, time.Time{}, ErrCacheMiss
	}
	return e.Quote, e.ExpiresAt, nil
}
