package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"

	"github.com/awsl-project/ranstat/internal/metrics"
)

// RouterConfig collects everything the HTTP surface needs
type RouterConfig struct {
	Importer    Importer
	Lister      ImportLister
	Query       KPIQuerier
	Hub         *WebSocketHub
	Auth        *AuthMiddleware
	Metrics     *metrics.Metrics
	MaxUploadMB int
	CORSOrigins []string
	// AccessLog 为 nil 时不记录访问日志
	AccessLog io.Writer
}

// NewRouter builds the chi router with recovery, CORS and access logging applied.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	m := cfg.Metrics

	r.Method(http.MethodGet, "/health", m.WrapHandler("/health", http.HandlerFunc(handleHealth)))
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	if cfg.Hub != nil {
		r.Method(http.MethodGet, "/ws", m.WrapHandler("/ws", http.HandlerFunc(cfg.Hub.HandleWebSocket)))
	}

	auth := cfg.Auth
	if auth == nil {
		auth = NewAuthMiddleware("")
	}

	r.Group(func(r chi.Router) {
		r.Use(routeMetrics(m))
		NewAuthHandler(auth).RegisterRoutes(r)
		if cfg.Importer != nil && cfg.Lister != nil {
			NewImportHandler(cfg.Importer, cfg.Lister, auth, cfg.MaxUploadMB).RegisterRoutes(r)
		}
		if cfg.Query != nil {
			NewKPIHandler(cfg.Query).RegisterRoutes(r)
		}
	})

	var h http.Handler = r
	if len(cfg.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", AuthHeader}),
		)(h)
	}
	if cfg.AccessLog != nil {
		h = handlers.LoggingHandler(cfg.AccessLog, h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.Default()),
		handlers.PrintRecoveryStack(true),
	)(h)
}

// routeMetrics 用 chi 的路由模板作为 label，避免把 URL 参数打进 label
// 只能用在 Group 里，这时路由已经匹配完成
func routeMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			route := chi.RouteContext(req.Context()).RoutePattern()
			if route == "" {
				route = req.URL.Path
			}
			m.WrapHandler(route, next).ServeHTTP(w, req)
		})
	}
}

// GET /health
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
