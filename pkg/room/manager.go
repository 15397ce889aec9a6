package room

import "context"

// Manager 房间成员关系管理
//
// 房间在第一个成员加入时隐式创建，最后一个成员离开的
// 那次变更中删除：空房间不会存活到变更之后。所有实现
// 必须保证同一键上的并发 Join/Leave 不丢失更新。
//
// 内存实现只适用于单进程部署；多 worker 部署通过配置
// 切换到 redis 实现，调度器的契约不变。
type Manager interface {
	// Join 将用户加入房间（幂等，已是成员时不报错）
	Join(ctx context.Context, roomID, userID string) error

	// Leave 将用户移出房间（幂等，非成员时为空操作）；
	// 成员清空时删除房间
	Leave(ctx context.Context, roomID, userID string) error

	// LeaveAll 将用户移出其加入的全部房间（断连清理）
	LeaveAll(ctx context.Context, userID string) error

	// IsMember 用户当前是否在房间成员集合中
	IsMember(ctx context.Context, roomID, userID string) (bool, error)

	// Members 房间成员列表；房间不存在时返回空
	Members(ctx context.Context, roomID string) ([]string, error)
}
