package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"github.com/ogurasousui/business-license-api/internal/platform/ratelimit"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Pinger は依存先の疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig は REST ルーターの構成要素です。
type RouterConfig struct {
	Service        license.UseCase
	Logger         *zap.Logger
	Limiter        *ratelimit.Limiter
	Readiness      Pinger
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// NewRouter は REST API のルーターを構築します。
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(logging.RequestLogger(logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Business License API"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Readiness != nil {
			ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
			defer cancel()
			if err := cfg.Readiness.Ping(ctx); err != nil {
				logging.FromContext(req.Context(), logger).Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "database unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.With(cfg.Limiter.Middleware).Mount("/api/v1/licenses", NewLicenseHandler(cfg.Service, logger).Routes())

	return r
}

// CORS は許可されたオリジンにのみ CORS ヘッダーを付与するミドルウェアです。"*" は全オリジンを許可します。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
