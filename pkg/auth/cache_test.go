package auth

import (
	"testing"
	"time"
)

// TestTokenCache 测试令牌缓存
func TestTokenCache(t *testing.T) {
	t.Run("Set/Get", func(t *testing.T) {
		c := NewTokenCache(time.Minute)
		claims := &Claims{UserID: "alice"}

		c.Set("token-a", claims)

		got, ok := c.Get("token-a")
		if !ok {
			t.Fatal("expected cache hit")
		}
		if got.UserID != "alice" {
			t.Errorf("expected user alice, got %q", got.UserID)
		}
	})

	t.Run("Miss", func(t *testing.T) {
		c := NewTokenCache(time.Minute)
		if _, ok := c.Get("unknown"); ok {
			t.Error("expected cache miss")
		}
	})

	t.Run("DistinctTokensCachedIndependently", func(t *testing.T) {
		c := NewTokenCache(time.Minute)
		claims := &Claims{UserID: "alice"}

		// 声明相同的两个令牌各自独立
		c.Set("token-a", claims)
		if _, ok := c.Get("token-b"); ok {
			t.Error("expected miss for a different token text")
		}
		if c.Len() != 1 {
			t.Errorf("expected 1 entry, got %d", c.Len())
		}
	})

	t.Run("LazyExpiry", func(t *testing.T) {
		c := NewTokenCache(time.Minute)
		now := time.Now()
		c.now = func() time.Time { return now }

		c.Set("token-a", &Claims{UserID: "alice"})

		// 过期后的第一次读取删除条目
		now = now.Add(time.Minute)
		if _, ok := c.Get("token-a"); ok {
			t.Fatal("expected expired entry to miss")
		}
		if c.Len() != 0 {
			t.Errorf("expected expired entry to be removed, got %d entries", c.Len())
		}

		// 不等外部时钟变化，再次读取仍然未命中
		if _, ok := c.Get("token-a"); ok {
			t.Error("expected repeated get after expiry to miss")
		}
	})
}
