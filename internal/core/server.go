package core

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultGracefulShutdownTimeout is the maximum time to wait for active imports
	DefaultGracefulShutdownTimeout = 2 * time.Minute
	// HTTPShutdownTimeout is the timeout for HTTP server shutdown after imports complete
	HTTPShutdownTimeout = 5 * time.Second
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr    string
	DataDir string
	Handler http.Handler
	Tracker *ImportTracker
	// 等待导入完成的最长时间，0 使用默认值
	GracefulShutdownTimeout time.Duration
	// 关闭时调用，用于停止后台任务、关闭事件连接
	OnStop []func()
}

// ManagedServer 可管理的服务器（支持启动/停止）
type ManagedServer struct {
	config     *ServerConfig
	httpServer *http.Server
	listener   net.Listener

	mu        sync.Mutex
	isRunning bool
	errCh     chan error
}

// NewManagedServer 创建可管理的服务器
func NewManagedServer(config *ServerConfig) (*ManagedServer, error) {
	if config.Handler == nil {
		return nil, errors.New("server handler is required")
	}
	if config.GracefulShutdownTimeout <= 0 {
		config.GracefulShutdownTimeout = DefaultGracefulShutdownTimeout
	}
	log.Printf("[Server] Creating managed server on %s", config.Addr)
	return &ManagedServer{config: config}, nil
}

// Start 启动服务器；监听失败直接返回错误
func (s *ManagedServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		log.Printf("[Server] Server already running")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.config.Handler,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.errCh = make(chan error, 1)

	go func() {
		log.Printf("[Server] Starting HTTP server on %s", ln.Addr())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] Server error: %v", err)
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.isRunning = true
	log.Printf("[Server] Server started successfully")
	return nil
}

// Err is closed when the server stops; it yields the serve error if there was one
func (s *ManagedServer) Err() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCh
}

// Stop 停止服务器：先等待进行中的导入，再关闭 HTTP
func (s *ManagedServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		log.Printf("[Server] Server already stopped")
		return nil
	}

	log.Printf("[Server] Stopping HTTP server on %s", s.listener.Addr())

	// Step 1: 拒绝新导入并等待进行中的导入完成
	if tracker := s.config.Tracker; tracker != nil {
		waitCtx, cancel := context.WithTimeout(ctx, s.config.GracefulShutdownTimeout)
		if !tracker.WaitWithContext(waitCtx) {
			log.Printf("[Server] Graceful shutdown timeout, some imports may be interrupted")
		}
		cancel()
	}

	// Step 2: Shutdown HTTP server (with shorter timeout since imports should be done)
	shutdownCtx, cancel := context.WithTimeout(ctx, HTTPShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] HTTP server graceful shutdown failed: %v, forcing close", err)
		if closeErr := s.httpServer.Close(); closeErr != nil {
			log.Printf("[Server] Force close error: %v", closeErr)
		}
	}

	for _, fn := range s.config.OnStop {
		fn()
	}

	s.isRunning = false
	log.Printf("[Server] Server stopped successfully")
	return nil
}

// IsRunning 检查服务器是否在运行
func (s *ManagedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Addr returns the bound address, which differs from the configured one for ":0".
func (s *ManagedServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// GetDataDir 获取数据目录
func (s *ManagedServer) GetDataDir() string {
	return s.config.DataDir
}
