package relay

// Transport 下层套接字传输的最小投递接口
//
// Push 是尽力而为的非阻塞投递：慢速或已死的对端不能阻塞
// 调用方，不等待确认也不施加背压。Close 向连接发送带状态码
// 的关闭帧并断开。
type Transport interface {
	Push(connID string, payload []byte) error
	Close(connID string, code int, reason string)
}
