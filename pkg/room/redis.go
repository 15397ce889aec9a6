package room

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisManager 基于 Redis 的共享房间管理实现
//
// 房间成员放在 set（{prefix}room:{id}），用户加入的房间放在
// 反向 set（{prefix}user:{id}:rooms）。Redis 在 set 清空时自动
// 删除键，空房间不存活的不变量天然成立。
type redisManager struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisManager 创建 Redis 房间管理器
func NewRedisManager(client redis.UniversalClient, keyPrefix string) Manager {
	return &redisManager{client: client, keyPrefix: keyPrefix}
}

// roomKey 房间成员集合键
func (m *redisManager) roomKey(roomID string) string {
	return m.keyPrefix + "room:" + roomID
}

// userKey 用户已加入房间集合键
func (m *redisManager) userKey(userID string) string {
	return m.keyPrefix + "user:" + userID + ":rooms"
}

// Join 加入房间
func (m *redisManager) Join(ctx context.Context, roomID, userID string) error {
	pipe := m.client.TxPipeline()
	pipe.SAdd(ctx, m.roomKey(roomID), userID)
	pipe.SAdd(ctx, m.userKey(userID), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("room: join failed: %w", err)
	}
	return nil
}

// Leave 离开房间
func (m *redisManager) Leave(ctx context.Context, roomID, userID string) error {
	pipe := m.client.TxPipeline()
	pipe.SRem(ctx, m.roomKey(roomID), userID)
	pipe.SRem(ctx, m.userKey(userID), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("room: leave failed: %w", err)
	}
	return nil
}

// LeaveAll 离开全部房间
func (m *redisManager) LeaveAll(ctx context.Context, userID string) error {
	rooms, err := m.client.SMembers(ctx, m.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("room: leave all failed: %w", err)
	}
	if len(rooms) == 0 {
		return nil
	}

	pipe := m.client.TxPipeline()
	for _, roomID := range rooms {
		pipe.SRem(ctx, m.roomKey(roomID), userID)
	}
	pipe.Del(ctx, m.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("room: leave all failed: %w", err)
	}
	return nil
}

// IsMember 是否为房间成员
func (m *redisManager) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	ok, err := m.client.SIsMember(ctx, m.roomKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("room: membership check failed: %w", err)
	}
	return ok, nil
}

// Members 房间成员列表
func (m *redisManager) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := m.client.SMembers(ctx, m.roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("room: members lookup failed: %w", err)
	}
	return members, nil
}
