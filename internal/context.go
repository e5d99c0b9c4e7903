package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextRequestIPKey ctxKey = "requestIP"

func RequestIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if ip, ok := ctx.Value(ContextRequestIPKey).(string); ok {
		return ip
	}
	return ""
}

func ContextWithRequestIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ContextRequestIPKey, ip)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
