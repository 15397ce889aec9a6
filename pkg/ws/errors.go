package ws

import "errors"

// 错误定义
var (
	// 连接相关错误
	ErrTooManyConnections = errors.New("ws: too many connections")
	ErrClientNotFound     = errors.New("ws: client not found")
	ErrConnectionClosed   = errors.New("ws: connection closed")

	// 消息相关错误
	ErrChannelFull = errors.New("ws: send channel full")

	// 配置相关错误
	ErrInvalidConfig = errors.New("ws: invalid config")
)
