package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tokmz/relay/pkg/relay"
)

// Server WebSocket 传输层：连接升级、连接池、帧转发
//
// 核心逻辑都在调度器里，Server 只负责把传输事件翻译为
// HandleOpen/HandleFrame/HandleClose，并实现 relay.Transport
// 把「推送字节」「按状态码关闭」落到具体连接上。
type Server struct {
	config     *Config
	upgrader   websocket.Upgrader
	dispatcher *relay.Dispatcher
	logger     *zap.Logger

	clients sync.Map // connID -> *Client
	count   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer 创建传输层
func NewServer(config *Config, dispatcher *relay.Dispatcher, logger *zap.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
			HandshakeTimeout: config.HandshakeTimeout,
			CheckOrigin:      checkOrigin,
		},
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// HandleUpgrade 升级 HTTP 连接并走握手
func (s *Server) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if int(s.count.Load()) >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := newClient(connID, conn, s)
	s.clients.Store(connID, client)
	s.count.Add(1)

	// 握手失败时调度器已经通过 Transport.Close 关闭了连接
	if err := s.dispatcher.HandleOpen(s.ctx, connID, conn.RemoteAddr().String(), r.Header); err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		client.run()
	}()
}

// Push 实现 relay.Transport：非阻塞推送字节
func (s *Server) Push(connID string, payload []byte) error {
	value, ok := s.clients.Load(connID)
	if !ok {
		return ErrClientNotFound
	}
	client, ok := value.(*Client)
	if !ok {
		return ErrClientNotFound
	}
	return client.Send(payload)
}

// Close 实现 relay.Transport：以指定状态码关闭连接
func (s *Server) Close(connID string, code int, reason string) {
	value, ok := s.clients.Load(connID)
	if !ok {
		return
	}
	if client, ok := value.(*Client); ok {
		client.close(code, reason)
	}
}

// removeClient 从连接池移除并通知调度器
func (s *Server) removeClient(c *Client) {
	if _, loaded := s.clients.LoadAndDelete(c.ID); loaded {
		s.count.Add(-1)
		s.dispatcher.HandleClose(s.ctx, c.ID)
	}
}

// Count 当前连接数
func (s *Server) Count() int {
	return int(s.count.Load())
}

// Shutdown 优雅关闭：断开所有客户端并等待协程退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.clients.Range(func(_, value any) bool {
		if client, ok := value.(*Client); ok {
			client.close(websocket.CloseGoingAway, "server shutting down")
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
