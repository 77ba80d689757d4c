package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dnadiscipleship/hub/cmd/hubapi/internal/auth"
)

// CacheEntry is what the resolver remembers about a provider credential.
type CacheEntry struct {
	UserID     string
	Email      string
	Name       string
	Roles      []auth.Assignment
	ResolvedAt time.Time
}

// RoleCache stores resolved identities and roles keyed by credential hash.
// Implementations must be safe for concurrent use.
type RoleCache interface {
	Get(key string) (CacheEntry, bool)
	Add(key string, entry CacheEntry)
	// Remove drops a single credential.
	Remove(key string)
	// RemoveUser drops every credential resolved to userID.
	RemoveUser(userID string)
}

// ExpirableRoleCache is a size-bounded LRU whose entries expire after a TTL.
type ExpirableRoleCache struct {
	lru *expirable.LRU[string, CacheEntry]
}

// NewExpirableRoleCache creates a cache holding at most size entries for ttl each.
func NewExpirableRoleCache(size int, ttl time.Duration) *ExpirableRoleCache {
	return &ExpirableRoleCache{lru: expirable.NewLRU[string, CacheEntry](size, nil, ttl)}
}

func (c *ExpirableRoleCache) Get(key string) (CacheEntry, bool) {
	return c.lru.Get(key)
}

func (c *ExpirableRoleCache) Add(key string, entry CacheEntry) {
	c.lru.Add(key, entry)
}

func (c *ExpirableRoleCache) Remove(key string) {
	c.lru.Remove(key)
}

// RemoveUser is a linear scan over live entries.
func (c *ExpirableRoleCache) RemoveUser(userID string) {
	for _, key := range c.lru.Keys() {
		if entry, ok := c.lru.Peek(key); ok && entry.UserID == userID {
			c.lru.Remove(key)
		}
	}
}

// Len reports the number of live entries.
func (c *ExpirableRoleCache) Len() int {
	return c.lru.Len()
}

// NopRoleCache never stores anything. Every resolution hits the credential
// store and the database.
type NopRoleCache struct{}

func (NopRoleCache) Get(string) (CacheEntry, bool) { return CacheEntry{}, false }
func (NopRoleCache) Add(string, CacheEntry)        {}
func (NopRoleCache) Remove(string)                 {}
func (NopRoleCache) RemoveUser(string)             {}
