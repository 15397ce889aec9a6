package relay

// State 连接生命周期状态
type State int

const (
	// StateConnecting 已打开但握手未完成
	StateConnecting State = iota
	// StateOpen 握手通过，可以收发消息
	StateOpen
	// StateClosed 已关闭
	StateClosed
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn 调度器独占的连接状态
//
// 其他组件一律通过 connID 引用连接，不持有 *Conn。
type Conn struct {
	ID         string
	RemoteAddr string
	state      State
}

// 握手失败关闭码
const (
	// CloseInvalidID user-id 或 app-id 头无效
	CloseInvalidID = 4000
	// CloseTokenMissing 未提供 token 头
	CloseTokenMissing = 4001
	// CloseTokenInvalid 令牌校验失败
	CloseTokenInvalid = 4002
)

// 握手头
const (
	HeaderUserID = "user-id"
	HeaderAppID  = "app-id"
	HeaderToken  = "token"
)
