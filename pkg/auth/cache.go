package auth

import (
	"sync"
	"time"
)

// DefaultCacheTTL 默认缓存时长
const DefaultCacheTTL = 300 * time.Second

// entry 缓存条目
type entry struct {
	claims    *Claims
	expiresAt time.Time
}

// TokenCache 按原始令牌文本缓存已验证的声明
//
// 过期在读取时惰性检查，没有后台清理协程：读到过期条目时
// 删除并当作未命中。键是令牌字面值，声明相同的两个不同令牌
// 各自独立缓存。
type TokenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewTokenCache 创建令牌缓存
func NewTokenCache(ttl time.Duration) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &TokenCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get 读取缓存；过期条目被删除并返回未命中
func (c *TokenCache) Get(token string) (*Claims, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, token)
		return nil, false
	}
	return e.claims, true
}

// Set 写入缓存，过期时间为 now + ttl
func (c *TokenCache) Set(token string, claims *Claims) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[token] = entry{
		claims:    claims,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len 当前条目数（含尚未被惰性清理的过期条目）
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
