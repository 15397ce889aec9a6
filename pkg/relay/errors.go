package relay

import (
	"errors"
	"fmt"
)

// 运行期错误：捕获在消息处理边界，回报给发送方，连接保持打开。
// 错误文本会原样进入 {"error": ...} 响应。
var (
	// ErrNotRoomMember 发送方不是目标房间成员
	ErrNotRoomMember = errors.New("User not in room!")
	// ErrInvalidMessageType 未知消息类型
	ErrInvalidMessageType = errors.New("Invalid message type!")
	// ErrNotAuthenticated 连接没有绑定身份（握手后不应出现，防御性检查）
	ErrNotAuthenticated = errors.New("Connection not authenticated!")
)

// HandshakeError 握手被拒：连接以给定状态码关闭，不再继续检查
type HandshakeError struct {
	Code   int
	Reason string
}

// Error 实现 error 接口
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected (%d): %s", e.Code, e.Reason)
}

// Is 当 target 也是 *HandshakeError 时，比较 Code 是否相同
func (e *HandshakeError) Is(target error) bool {
	t, ok := target.(*HandshakeError)
	return ok && e.Code == t.Code
}
