package relay

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/auth"
	"github.com/tokmz/relay/pkg/message"
	"github.com/tokmz/relay/pkg/registry"
	"github.com/tokmz/relay/pkg/room"
)

// Dispatcher 按套接字事件编排核心组件
//
// open 事件走握手状态机，message 事件走校验→路由，close 事件
// 做绑定与房间清理。每个事件处理器同步运行到结束；任何一条
// 连接上的错误都被隔离，不影响其他连接。
type Dispatcher struct {
	appID     string
	gateway   *auth.Gateway
	validator *message.Validator
	rooms     room.Manager
	registry  registry.Registry
	transport Transport
	logger    *zap.Logger

	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewDispatcher 创建调度器
func NewDispatcher(
	appID string,
	gateway *auth.Gateway,
	validator *message.Validator,
	rooms room.Manager,
	reg registry.Registry,
	transport Transport,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		appID:     appID,
		gateway:   gateway,
		validator: validator,
		rooms:     rooms,
		registry:  reg,
		transport: transport,
		logger:    logger,
		conns:     make(map[string]*Conn),
	}
}

// HandleOpen 处理连接打开事件（握手）
//
// 状态机每一步失败即终结：以对应状态码关闭连接，不再继续
// 后续检查。返回的 *HandshakeError 描述拒绝原因，成功返回 nil。
func (d *Dispatcher) HandleOpen(ctx context.Context, connID, remoteAddr string, headers http.Header) error {
	conn := &Conn{ID: connID, RemoteAddr: remoteAddr, state: StateConnecting}
	d.mu.Lock()
	d.conns[connID] = conn
	d.mu.Unlock()

	ip, port := splitRemote(remoteAddr)

	userID := headers.Get(HeaderUserID)
	if userID == "" {
		d.logger.Info("invalid user id",
			zap.String("ip", ip), zap.String("port", port))
		return d.reject(connID, CloseInvalidID, "Invalid user id!")
	}

	appID := headers.Get(HeaderAppID)
	if appID == "" || appID != d.appID {
		d.logger.Info("invalid app id",
			zap.String("ip", ip), zap.String("port", port))
		return d.reject(connID, CloseInvalidID, "Invalid app id!")
	}

	token := headers.Get(HeaderToken)
	if token == "" {
		d.logger.Info("token not provided",
			zap.String("ip", ip), zap.String("port", port))
		return d.reject(connID, CloseTokenMissing, "Token not provided!")
	}

	if _, err := d.gateway.Verify(token); err != nil {
		d.logger.Info("invalid token",
			zap.String("ip", ip), zap.String("port", port), zap.Error(err))
		return d.reject(connID, CloseTokenInvalid, "Invalid token!")
	}

	if err := d.registry.Bind(ctx, connID, userID); err != nil {
		d.logger.Error("identity bind failed",
			zap.String("ip", ip), zap.String("port", port), zap.Error(err))
		return d.reject(connID, CloseTokenInvalid, "Invalid token!")
	}

	d.mu.Lock()
	conn.state = StateOpen
	d.mu.Unlock()

	d.logger.Info("connection established",
		zap.String("conn_id", connID),
		zap.String("user_id", userID),
		zap.String("ip", ip), zap.String("port", port))
	return nil
}

// reject 关闭连接并返回握手错误
func (d *Dispatcher) reject(connID string, code int, reason string) error {
	d.mu.Lock()
	if conn, ok := d.conns[connID]; ok {
		conn.state = StateClosed
	}
	delete(d.conns, connID)
	d.mu.Unlock()

	d.transport.Close(connID, code, reason)
	return &HandshakeError{Code: code, Reason: reason}
}

// HandleFrame 处理消息事件
//
// 处理过程中的一切错误都在这里捕获：记录连接诊断信息，
// 只向来源连接回一条错误响应，连接保持打开。
func (d *Dispatcher) HandleFrame(ctx context.Context, connID string, raw []byte) {
	err := d.handleFrame(ctx, connID, raw)
	if err == nil {
		return
	}

	ip, port := splitRemote(d.remoteAddr(connID))
	d.logger.Error(err.Error(),
		zap.String("conn_id", connID),
		zap.String("ip", ip), zap.String("port", port))

	d.pushJSON(connID, message.ErrorPayload{Error: err.Error()})
}

// handleFrame 校验并路由一帧消息
func (d *Dispatcher) handleFrame(ctx context.Context, connID string, raw []byte) error {
	// 后续只使用净化后的消息，不再使用原始输入
	msg, err := d.validator.Validate(raw)
	if err != nil {
		return err
	}

	userID, ok, err := d.registry.Lookup(ctx, connID)
	if err != nil {
		return err
	}
	if !ok {
		// 握手后不应出现，防御性检查
		return ErrNotAuthenticated
	}

	roomID := msg.Metadata.RoomID

	ip, port := splitRemote(d.remoteAddr(connID))
	d.logger.Info("message received",
		zap.String("type", string(msg.Type)),
		zap.String("ip", ip), zap.String("port", port))

	switch msg.Type {
	case message.TypeJoinRoom:
		if err := d.rooms.Join(ctx, roomID, userID); err != nil {
			return err
		}
		d.pushJSON(connID, message.NewJoinedAck(roomID))
		d.logger.Info("user joined room",
			zap.String("room_id", roomID), zap.String("user_id", userID))

	case message.TypeLeaveRoom:
		if err := d.rooms.Leave(ctx, roomID, userID); err != nil {
			return err
		}
		d.pushJSON(connID, message.NewLeftAck(roomID))
		d.logger.Info("user left room",
			zap.String("room_id", roomID), zap.String("user_id", userID))

	case message.TypeMessage, message.TypeImage, message.TypeDocument, message.TypeNotification:
		member, err := d.rooms.IsMember(ctx, roomID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotRoomMember
		}
		return d.broadcast(ctx, roomID, userID, msg.Content)

	default:
		return ErrInvalidMessageType
	}

	return nil
}

// broadcast 将净化后的内容推送给房间内其他已建立连接的成员
func (d *Dispatcher) broadcast(ctx context.Context, roomID, senderID, content string) error {
	members, err := d.rooms.Members(ctx, roomID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	payload, err := json.Marshal(message.NewBroadcast(senderID, content))
	if err != nil {
		return err
	}

	for _, userID := range members {
		if userID == senderID {
			continue
		}
		connID, ok, err := d.registry.Resolve(ctx, userID)
		if err != nil || !ok {
			continue
		}
		// 尽力而为投递：失败只记录，不中断其他成员
		if err := d.transport.Push(connID, payload); err != nil {
			d.logger.Debug("push to member failed",
				zap.String("room_id", roomID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return nil
}

// HandleClose 处理连接关闭事件
//
// 解除身份绑定并将用户移出全部房间，避免幽灵成员滞留。
func (d *Dispatcher) HandleClose(ctx context.Context, connID string) {
	d.mu.Lock()
	conn, ok := d.conns[connID]
	if ok {
		conn.state = StateClosed
		delete(d.conns, connID)
	}
	d.mu.Unlock()

	remote := ""
	if ok {
		remote = conn.RemoteAddr
	}
	ip, port := splitRemote(remote)

	userID, bound, err := d.registry.Lookup(ctx, connID)
	if err != nil {
		d.logger.Error("identity lookup on close failed",
			zap.String("conn_id", connID), zap.Error(err))
	}
	if bound {
		if err := d.registry.Unbind(ctx, connID); err != nil {
			d.logger.Error("identity unbind failed",
				zap.String("conn_id", connID), zap.Error(err))
		}
		if err := d.rooms.LeaveAll(ctx, userID); err != nil {
			d.logger.Error("room cleanup on close failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	d.logger.Info("connection closed",
		zap.String("conn_id", connID),
		zap.String("ip", ip), zap.String("port", port))
}

// ConnState 连接当前状态（不存在时返回 StateClosed）
func (d *Dispatcher) ConnState(connID string) State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if conn, ok := d.conns[connID]; ok {
		return conn.state
	}
	return StateClosed
}

// remoteAddr 连接的远端地址（仅用于诊断）
func (d *Dispatcher) remoteAddr(connID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if conn, ok := d.conns[connID]; ok {
		return conn.RemoteAddr
	}
	return ""
}

// pushJSON 序列化并推送给单个连接，失败只记录
func (d *Dispatcher) pushJSON(connID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		d.logger.Error("payload marshal failed", zap.Error(err))
		return
	}
	if err := d.transport.Push(connID, payload); err != nil {
		d.logger.Debug("push failed",
			zap.String("conn_id", connID), zap.Error(err))
	}
}

// splitRemote 拆分远端地址为 ip/port，拆不开时原样返回
func splitRemote(remote string) (string, string) {
	ip, port, err := net.SplitHostPort(remote)
	if err != nil {
		return remote, ""
	}
	return ip, port
}
