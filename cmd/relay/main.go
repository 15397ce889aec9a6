package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/relay/pkg/auth"
	"github.com/tokmz/relay/pkg/config"
	"github.com/tokmz/relay/pkg/logger"
	"github.com/tokmz/relay/pkg/message"
	"github.com/tokmz/relay/pkg/registry"
	"github.com/tokmz/relay/pkg/relay"
	"github.com/tokmz/relay/pkg/room"
	"github.com/tokmz/relay/pkg/ws"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: ./relay.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	// 认证链：HS256 校验器 + 令牌缓存 + 网关
	gateway := auth.NewGateway(
		auth.NewHMACVerifier(cfg.Auth.Secret),
		auth.NewTokenCache(cfg.Auth.TokenCacheTTL),
	)

	// 房间与连接注册表按配置选择进程内或共享存储
	rooms, reg, err := buildStores(cfg, log)
	if err != nil {
		return err
	}

	wsConfig := ws.DefaultConfig()
	wsConfig.MaxConnections = cfg.Server.MaxConnections
	wsConfig.MaxMessageSize = cfg.Server.MaxMessageSize
	wsConfig.HeartbeatInterval = cfg.Server.HeartbeatInterval
	wsConfig.HeartbeatTimeout = cfg.Server.HeartbeatTimeout

	// 调度器与传输层互相引用：先建传输层再注入
	var server *ws.Server
	dispatcher := relay.NewDispatcher(cfg.Server.AppID, gateway,
		message.NewValidator(), rooms, reg, transportFunc(func() *ws.Server { return server }), log)
	server, err = ws.NewServer(wsConfig, dispatcher, log)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": server.Count()})
	})
	router.GET("/ws", func(c *gin.Context) {
		server.HandleUpgrade(c.Writer, c.Request)
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("websocket shutdown incomplete", zap.Error(err))
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildStores 按配置构建房间管理器与连接注册表
func buildStores(cfg *config.Config, log *zap.Logger) (room.Manager, registry.Registry, error) {
	switch cfg.Store.Mode {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Username: cfg.Store.Redis.Username,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			PoolSize: cfg.Store.Redis.PoolSize,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}

		log.Info("using shared redis store", zap.String("addr", cfg.Store.Redis.Addr))
		prefix := cfg.Store.Redis.KeyPrefix
		return room.NewRedisManager(client, prefix), registry.NewRedisRegistry(client, prefix), nil

	default:
		log.Info("using in-process store")
		return room.NewMemoryManager(), registry.NewMemoryRegistry(), nil
	}
}

// transportFunc 延迟解析传输层引用，解决构造顺序上的循环依赖
type transportFunc func() *ws.Server

// Push 实现 relay.Transport
func (f transportFunc) Push(connID string, payload []byte) error {
	return f().Push(connID, payload)
}

// Close 实现 relay.Transport
func (f transportFunc) Close(connID string, code int, reason string) {
	f().Close(connID, code, reason)
}
