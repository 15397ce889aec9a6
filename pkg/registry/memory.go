package registry

import (
	"context"
	"sync"
)

// memoryRegistry 进程内绑定实现
type memoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]string // connID -> userID
	users map[string]string // userID -> connID
}

// NewMemoryRegistry 创建进程内连接注册表
func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		conns: make(map[string]string),
		users: make(map[string]string),
	}
}

// Bind 绑定连接与用户
func (r *memoryRegistry) Bind(ctx context.Context, connID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 同一用户重复绑定时淘汰旧连接的映射
	if old, ok := r.users[userID]; ok && old != connID {
		delete(r.conns, old)
	}
	r.conns[connID] = userID
	r.users[userID] = connID
	return nil
}

// Unbind 解除绑定
func (r *memoryRegistry) Unbind(ctx context.Context, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)
	if cur, ok := r.users[userID]; ok && cur == connID {
		delete(r.users, userID)
	}
	return nil
}

// Lookup 查询连接绑定的用户
func (r *memoryRegistry) Lookup(ctx context.Context, connID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.conns[connID]
	return userID, ok, nil
}

// Resolve 反向查询用户当前的连接
func (r *memoryRegistry) Resolve(ctx context.Context, userID string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.users[userID]
	return connID, ok, nil
}
