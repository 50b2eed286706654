package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved coordinates by normalized query. Only hits are
// cached; misses may be transient.
type Cache interface {
	Get(ctx context.Context, key string) (Coordinates, bool)
	Set(ctx context.Context, key string, c Coordinates)
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]Coordinates
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]Coordinates)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Coordinates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, v Coordinates) {
	c.mu.Lock()
	c.m[key] = v
	c.mu.Unlock()
}

// RedisCache shares answers across runs and processes. Values are stored as
// "lat,lon" strings under a fixed key prefix.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

const redisPrefix = "itvetl:geocode:"

// NewRedisCache pings addr and returns a cache backed by it.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("geocode: redis ping %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl, prefix: redisPrefix}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Coordinates, bool) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		return Coordinates{}, false
	}
	lat, lon, ok := strings.Cut(v, ",")
	if !ok {
		return Coordinates{}, false
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: la, Lon: lo}, true
}

// Set is best effort; a failed write only costs a later lookup.
func (c *RedisCache) Set(ctx context.Context, key string, v Coordinates) {
	val := strconv.FormatFloat(v.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(v.Lon, 'f', -1, 64)
	_ = c.client.Set(ctx, c.prefix+key, val, c.ttl).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
