package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const idleEviction = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter はクライアントアドレス単位のトークンバケットです。period あたり requests 件まで許可します。
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	period    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// New は Limiter を生成します。レート制限が無効な場合は nil を返します。
func New(cfg config.RateLimitConfig) *Limiter {
	if !cfg.Enabled() {
		return nil
	}
	return &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Every(cfg.Period / time.Duration(cfg.Requests)),
		burst:   cfg.Requests,
		period:  cfg.Period,
		now:     time.Now,
	}
}

// Allow は key のリクエストを 1 件消費できるかどうかを返します。nil の Limiter は常に許可します。
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleEviction {
		return
	}
	l.lastSweep = now
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > idleEviction {
			delete(l.clients, key)
		}
	}
}

// Middleware は超過したリクエストに 429 を返す HTTP ミドルウェアです。
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(hostOnly(r.RemoteAddr)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(l.period/time.Second)))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UnaryServerInterceptor は超過した呼び出しに ResourceExhausted を返す gRPC インターセプターです。
func (l *Limiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if l == nil {
			return handler(ctx, req)
		}
		key := "unknown"
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			key = hostOnly(p.Addr.String())
		}
		if !l.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
