// Package cache provides short-TTL Redis caching for the analytics read
// surface. A missing or unreachable Redis disables caching rather than
// failing the service; reads then always hit the live engine.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotTTL and TrendTTL bound how stale a cached dashboard read can be.
const (
	SnapshotTTL = 10 * time.Second
	TrendTTL    = 30 * time.Second
)

type Cache struct {
	client  *redis.Client
	enabled bool
}

// New connects to Redis if a URL is provided. Any failure leaves the cache
// disabled and the service running.
func New(redisURL string) *Cache {
	if redisURL == "" {
		log.Println("Redis URL not provided, read caching disabled")
		return &Cache{}
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Failed to parse Redis URL: %v, read caching disabled", err)
		return &Cache{}
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Failed to connect to Redis: %v, read caching disabled", err)
		return &Cache{}
	}

	log.Println("Redis read cache initialized")
	return &Cache{client: client, enabled: true}
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// SnapshotKey addresses one cached bucket snapshot.
func SnapshotKey(periodKey, kind string) string {
	return fmt.Sprintf("snapshot:%s:%s", kind, periodKey)
}

// TrendKey addresses one cached trend response.
func TrendKey(kind, granularity, metricPath string, n int) string {
	return fmt.Sprintf("trend:%s:%s:%s:%d", kind, granularity, metricPath, n)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !c.enabled {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled {
		return redis.Nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Miss reports whether err is a plain cache miss rather than a failure.
func Miss(err error) bool {
	return err == redis.Nil
}
