package registry

import "context"

// Registry 连接与用户身份的绑定关系
//
// 任一时刻连接与用户一一对应：重连会建立新的绑定，同一用户
// 再次 Bind 时旧连接的绑定被替换。Resolve 提供 userID 到
// connID 的反向索引，广播开销正比于房间大小而不是总连接数。
//
// 与 room.Manager 一样，内存实现只在单进程内一致；多 worker
// 部署通过配置切换到 redis 实现。
type Registry interface {
	// Bind 绑定连接与用户
	Bind(ctx context.Context, connID, userID string) error

	// Unbind 解除连接的绑定（未绑定时为空操作）
	Unbind(ctx context.Context, connID string) error

	// Lookup 查询连接绑定的用户
	Lookup(ctx context.Context, connID string) (string, bool, error)

	// Resolve 反向查询用户当前的连接
	Resolve(ctx context.Context, userID string) (string, bool, error)
}
