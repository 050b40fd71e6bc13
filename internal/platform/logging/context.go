package logging

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
)

type ctxKey struct{}

// WithLogger はロガーをコンテキストに格納します。
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext はコンテキストのロガーを返します。存在しない場合は fallback を返します。
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return fallback
}

// RequestLogger はリクエスト単位のロガーをコンテキストへ格納し、完了時にアクセスログを出力する HTTP ミドルウェアです。
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := base
			if requestID := middleware.GetReqID(r.Context()); requestID != "" {
				logger = logger.With(zap.String("request_id", requestID))
			}
			logger = logger.With(
				zap.String("http_method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), logger)))

			logger.Info("request completed",
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// InterceptorLogger は go-grpc-middleware の logging インターセプター向けに zap をアダプトします。
func InterceptorLogger(l *zap.Logger) grpclogging.Logger {
	return grpclogging.LoggerFunc(func(ctx context.Context, lvl grpclogging.Level, msg string, fields ...any) {
		f := make([]zap.Field, 0, len(fields)/2)

		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			switch v := fields[i+1].(type) {
			case string:
				f = append(f, zap.String(key, v))
			case int:
				f = append(f, zap.Int(key, v))
			case bool:
				f = append(f, zap.Bool(key, v))
			default:
				f = append(f, zap.Any(key, v))
			}
		}

		logger := FromContext(ctx, l).WithOptions(zap.AddCallerSkip(1)).With(f...)

		switch lvl {
		case grpclogging.LevelDebug:
			logger.Debug(msg)
		case grpclogging.LevelInfo:
			logger.Info(msg)
		case grpclogging.LevelWarn:
			logger.Warn(msg)
		case grpclogging.LevelError:
			logger.Error(msg)
		default:
			panic(fmt.Sprintf("unknown level %v", lvl))
		}
	})
}
