package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client 一条已升级的 WebSocket 连接
//
// 读写各一个协程：readPump 把帧交给调度器，writePump 负责
// 发送队列与心跳。Send 非阻塞，队列满时直接丢弃并返回错误，
// 慢速对端不会拖住广播方。
type Client struct {
	ID     string
	conn   *websocket.Conn
	server *Server

	// 发送队列
	send chan []byte

	// 生命周期
	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
	writeDone chan struct{}
}

// newClient 创建客户端
func newClient(id string, conn *websocket.Conn, server *Server) *Client {
	ctx, cancel := context.WithCancel(server.ctx)
	return &Client{
		ID:        id,
		conn:      conn,
		server:    server,
		send:      make(chan []byte, server.config.SendQueueSize),
		ctx:       ctx,
		cancel:    cancel,
		writeDone: make(chan struct{}),
	}
}

// run 运行读写协程，任一退出即关闭连接
func (c *Client) run() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.readPump()
	}()

	go func() {
		defer wg.Done()
		c.writePump()
	}()

	wg.Wait()
	c.close(websocket.CloseNormalClosure, "")
}

// readPump 读取消息并交给调度器
func (c *Client) readPump() {
	defer c.cancel()

	c.conn.SetReadLimit(c.server.config.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.server.config.HeartbeatTimeout)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.server.config.HeartbeatTimeout))
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			c.server.dispatcher.HandleFrame(c.ctx, c.ID, data)
		}
	}
}

// writePump 写入消息与心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(c.server.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writeDone)
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeMessage(payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage 带写超时发送一帧
func (c *Client) writeMessage(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Send 非阻塞投递到发送队列
func (c *Client) Send(payload []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		return ErrChannelFull
	}
}

// close 发送关闭帧并释放连接
func (c *Client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		// 尽力发送关闭帧；对端已断开时忽略错误
		deadline := time.Now().Add(c.server.config.WriteWait)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)

		c.cancel()
		c.conn.Close()
		c.server.removeClient(c)

		// 等 writePump 退出后再关闭队列，避免向已关闭通道写入
		go func() {
			select {
			case <-c.writeDone:
			case <-time.After(5 * time.Second):
				// writePump 可能从未启动（握手被拒的连接）
			}
			close(c.send)
		}()
	})
}

// RemoteAddr 远端地址（仅用于诊断）
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
