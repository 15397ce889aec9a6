package room

import (
	"context"
	"sync"
)

// memoryManager 进程内房间管理实现
//
// rooms 维护 roomID -> 成员集合，userRooms 维护反向索引
// 以支持 LeaveAll 不用全量扫描。
type memoryManager struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]struct{}
	userRooms map[string]map[string]struct{}
}

// NewMemoryManager 创建进程内房间管理器
func NewMemoryManager() Manager {
	return &memoryManager{
		rooms:     make(map[string]map[string]struct{}),
		userRooms: make(map[string]map[string]struct{}),
	}
}

// Join 加入房间
func (m *memoryManager) Join(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		m.rooms[roomID] = members
	}
	members[userID] = struct{}{}

	joined, ok := m.userRooms[userID]
	if !ok {
		joined = make(map[string]struct{})
		m.userRooms[userID] = joined
	}
	joined[roomID] = struct{}{}

	return nil
}

// Leave 离开房间
func (m *memoryManager) Leave(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(roomID, userID)
	return nil
}

// LeaveAll 离开全部房间
func (m *memoryManager) LeaveAll(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.userRooms[userID] {
		m.leaveLocked(roomID, userID)
	}
	return nil
}

// leaveLocked 持锁移除成员，空房间随之删除
func (m *memoryManager) leaveLocked(roomID, userID string) {
	if members, ok := m.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	if joined, ok := m.userRooms[userID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(m.userRooms, userID)
		}
	}
}

// IsMember 是否为房间成员
func (m *memoryManager) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return false, nil
	}
	_, ok = members[userID]
	return ok, nil
}

// Members 房间成员列表
func (m *memoryManager) Members(ctx context.Context, roomID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(members))
	for userID := range members {
		out = append(out, userID)
	}
	return out, nil
}
