package entitlement

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache caches service-by-slug lookups. Invalidation is explicit, driven
// by the configuration writer.
type Cache interface {
	Get(slug string) (*Service, bool)
	Set(slug string, svc *Service)
	Invalidate(slug string)
}

// LRUCache is a short-TTL LRU Cache.
type LRUCache struct {
	lru *expirable.LRU[string, *Service]
}

var _ Cache = (*LRUCache)(nil)

// NewLRUCache builds a cache holding up to size entries for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, *Service](size, nil, ttl)}
}

func (c *LRUCache) Get(slug string) (*Service, bool) { return c.lru.Get(slug) }
func (c *LRUCache) Set(slug string, svc *Service)    { c.lru.Add(slug, svc) }
func (c *LRUCache) Invalidate(slug string)           { c.lru.Remove(slug) }
