package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// bindScript 原子替换绑定：同一用户的旧连接映射一并淘汰
// KEYS[1] conns hash, KEYS[2] users hash; ARGV[1] connID, ARGV[2] userID
var bindScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[2], ARGV[2])
if old and old ~= ARGV[1] then
  redis.call('HDEL', KEYS[1], old)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
return 1
`)

// unbindScript 原子解除绑定：仅当反向映射仍指向该连接时清理
// KEYS[1] conns hash, KEYS[2] users hash; ARGV[1] connID
var unbindScript = redis.NewScript(`
local user = redis.call('HGET', KEYS[1], ARGV[1])
if not user then
  return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
local cur = redis.call('HGET', KEYS[2], user)
if cur == ARGV[1] then
  redis.call('HDEL', KEYS[2], user)
end
return 1
`)

// redisRegistry 基于 Redis 的共享绑定实现
//
// 两个 hash：{prefix}conns 存 connID -> userID，{prefix}users
// 存 userID -> connID。绑定/解绑用 Lua 脚本保证两个方向的
// 变更原子生效。
type redisRegistry struct {
	client   redis.UniversalClient
	connsKey string
	usersKey string
}

// NewRedisRegistry 创建 Redis 连接注册表
func NewRedisRegistry(client redis.UniversalClient, keyPrefix string) Registry {
	return &redisRegistry{
		client:   client,
		connsKey: keyPrefix + "conns",
		usersKey: keyPrefix + "users",
	}
}

// Bind 绑定连接与用户
func (r *redisRegistry) Bind(ctx context.Context, connID, userID string) error {
	if err := bindScript.Run(ctx, r.client,
		[]string{r.connsKey, r.usersKey}, connID, userID).Err(); err != nil {
		return fmt.Errorf("registry: bind failed: %w", err)
	}
	return nil
}

// Unbind 解除绑定
func (r *redisRegistry) Unbind(ctx context.Context, connID string) error {
	if err := unbindScript.Run(ctx, r.client,
		[]string{r.connsKey, r.usersKey}, connID).Err(); err != nil {
		return fmt.Errorf("registry: unbind failed: %w", err)
	}
	return nil
}

// Lookup 查询连接绑定的用户
func (r *redisRegistry) Lookup(ctx context.Context, connID string) (string, bool, error) {
	userID, err := r.client.HGet(ctx, r.connsKey, connID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("registry: lookup failed: %w", err)
	}
	return userID, true, nil
}

// Resolve 反向查询用户当前的连接
func (r *redisRegistry) Resolve(ctx context.Context, userID string) (string, bool, error) {
	connID, err := r.client.HGet(ctx, r.usersKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("registry: resolve failed: %w", err)
	}
	return connID, true, nil
}
