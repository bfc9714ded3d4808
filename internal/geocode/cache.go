package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MBL11/transit-app-sub002/internal/planner"
	"github.com/redis/go-redis/v9"
)

// Cache stores geocoder answers by normalized query.
type Cache interface {
	Get(ctx context.Context, key string) ([]planner.Place, bool, error)
	Set(ctx context.Context, key string, places []planner.Place, ttl time.Duration) error
}

type cachedPlace struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// RedisCache shares answers between server instances.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "geocode:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

// NewRedisClient connects to addr with short timeouts; a slow cache must not
// hold up a journey search.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  500 * time.Millisecond,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		MaxRetries:   1,
	})
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]planner.Place, bool, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var stored []cachedPlace
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached places for %s: %w", key, err)
	}
	places := make([]planner.Place, 0, len(stored))
	for _, p := range stored {
		places = append(places, planner.Place{Lat: p.Lat, Lon: p.Lon, DisplayName: p.DisplayName})
	}
	return places, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, places []planner.Place, ttl time.Duration) error {
	stored := make([]cachedPlace, 0, len(places))
	for _, p := range places {
		stored = append(stored, cachedPlace{Lat: p.Lat, Lon: p.Lon, DisplayName: p.DisplayName})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// MemoryCache keeps answers in process until they expire.
type MemoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	places     []planner.Place
	validUntil time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]planner.Place, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.entries[key]
	if !found {
		return nil, false, nil
	}
	if !entry.validUntil.After(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return entry.places, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, places []planner.Place, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{places: places, validUntil: c.now().Add(ttl)}
	return nil
}
