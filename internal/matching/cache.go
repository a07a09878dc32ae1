package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/lifemap/lifemap-api/internal/catalog"
)

const (
	decisionKeyPrefix      = "oracle:decision:"
	DefaultDecisionTTL     = 5 * time.Minute
	defaultDecisionLRUSize = 512
)

// DecisionCache remembers oracle answers for identical requests. A miss is
// reported as ok=false with a nil error.
type DecisionCache interface {
	Get(ctx context.Context, key string) (providerID int, ok bool, err error)
	Set(ctx context.Context, key string, providerID int) error
}

// DecisionKey hashes the normalised request and the candidate id set, so a
// catalog change that alters candidates yields a different key.
func DecisionKey(req RequestContext, candidates []catalog.Provider) string {
	ids := make([]int, 0, len(candidates))
	for _, p := range candidates {
		ids = append(ids, p.ID)
	}
	sort.Ints(ids)
	raw, _ := json.Marshal(struct {
		Title    string `json:"t"`
		Category string `json:"c"`
		Location string `json:"l"`
		IDs      []int  `json:"ids"`
	}{
		Title:    strings.ToLower(strings.TrimSpace(req.Title)),
		Category: strings.ToLower(strings.TrimSpace(req.ServiceCategory)),
		Location: strings.ToLower(strings.TrimSpace(req.Location)),
		IDs:      ids,
	})
	sum := sha256.Sum256(raw)
	return decisionKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisDecisionCache stores decisions in Redis with a TTL.
type RedisDecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDecisionCache(client *redis.Client, ttl time.Duration) *RedisDecisionCache {
	if client == nil {
		panic("matching: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultDecisionTTL
	}
	return &RedisDecisionCache{client: client, ttl: ttl}
}

func (c *RedisDecisionCache) Get(ctx context.Context, key string) (int, bool, error) {
	id, err := c.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (c *RedisDecisionCache) Set(ctx context.Context, key string, providerID int) error {
	return c.client.Set(ctx, key, providerID, c.ttl).Err()
}

// LRUDecisionCache is an in-process cache for single-instance deployments.
type LRUDecisionCache struct {
	lru *expirable.LRU[string, int]
}

func NewLRUDecisionCache(size int, ttl time.Duration) *LRUDecisionCache {
	if size <= 0 {
		size = defaultDecisionLRUSize
	}
	if ttl <= 0 {
		ttl = DefaultDecisionTTL
	}
	return &LRUDecisionCache{lru: expirable.NewLRU[string, int](size, nil, ttl)}
}

func (c *LRUDecisionCache) Get(_ context.Context, key string) (int, bool, error) {
	id, ok := c.lru.Get(key)
	return id, ok, nil
}

func (c *LRUDecisionCache) Set(_ context.Context, key string, providerID int) error {
	c.lru.Add(key, providerID)
	return nil
}
