package core

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
)

// PprofConfig pprof 配置
type PprofConfig struct {
	Enabled bool
	// 只监听 localhost
	Port     int
	Password string
}

// PprofManager 管理 pprof 服务的启停，和主服务分开监听
type PprofManager struct {
	config    PprofConfig
	server    *http.Server
	addr      string
	mu        sync.Mutex
	isRunning bool
}

// NewPprofManager 创建 pprof 管理器
func NewPprofManager(config PprofConfig) *PprofManager {
	if config.Port <= 0 || config.Port > 65535 {
		config.Port = 6060
	}
	return &PprofManager{config: config}
}

// Start 启动 pprof 服务；未启用时什么都不做
func (m *PprofManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.config.Enabled {
		log.Printf("[Pprof] Pprof is disabled")
		return nil
	}
	if m.isRunning {
		return fmt.Errorf("pprof server already running")
	}

	addr := fmt.Sprintf("localhost:%d", m.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("[Pprof] Failed to bind to %s: %v", addr, err)
		return fmt.Errorf("failed to bind pprof server to %s: %w", addr, err)
	}

	// 独立的 mux，避免暴露主应用的其他路由
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var handler http.Handler = mux
	if m.config.Password != "" {
		handler = basicAuth(mux, m.config.Password)
	}

	srv := &http.Server{Handler: handler}
	m.server = srv
	m.addr = listener.Addr().String()
	m.isRunning = true

	go func() {
		log.Printf("[Pprof] Access pprof at http://%s/debug/pprof/", m.addr)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[Pprof] Server error: %v", err)
			m.mu.Lock()
			m.isRunning = false
			m.mu.Unlock()
		}
	}()
	return nil
}

// Stop 停止 pprof 服务
func (m *PprofManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning || m.server == nil {
		return nil
	}
	if err := m.server.Shutdown(ctx); err != nil {
		log.Printf("[Pprof] Graceful shutdown failed: %v, forcing close", err)
		_ = m.server.Close()
	}
	m.server = nil
	m.isRunning = false
	log.Printf("[Pprof] Pprof server stopped")
	return nil
}

// IsRunning 检查 pprof 服务是否运行中
func (m *PprofManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}

// Addr returns the bound address while running.
func (m *PprofManager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// basicAuth 用户名固定为 pprof
func basicAuth(next http.Handler, password string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, reqPassword, ok := r.BasicAuth()
		validUsername := subtle.ConstantTimeCompare([]byte(username), []byte("pprof")) == 1
		validPassword := subtle.ConstantTimeCompare([]byte(reqPassword), []byte(password)) == 1
		if !ok || !validUsername || !validPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
