package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/resto-order/pkg/logger"
)

// maxLoggedBody caps how much of a request or response body reaches the log.
const maxLoggedBody = 4 << 10

const filtered = "[FILTERED]"

// sensitiveKeys match header names and JSON keys by substring, case-insensitive.
var sensitiveKeys = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"private_key",
	"api_key",
	"signature",
	"account_number",
	"credential",
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs one line per request and one per response. Bodies are
// truncated and scrubbed of credentials, card data and gateway signatures.
func LoggingMiddleware(lg *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chiMiddleware.GetReqID(r.Context())
			ctx := logger.With(r.Context(), "request_id", reqID)
			r = r.WithContext(ctx)

			lg.Info("incoming request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"client_ip", ClientIP(r),
				"user_agent", r.UserAgent(),
				"headers", scrubHeaders(r.Header),
				"body", requestBody(r),
			)

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			lg.Log(ctx, level, "response",
				"request_id", reqID,
				"route", routePattern(r),
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", scrubBody(rec.captured.Bytes(), rec.truncated),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status    int
	size      int
	captured  bytes.Buffer
	truncated bool
}

func (rw *responseRecorder) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	if room := maxLoggedBody - rw.captured.Len(); room > 0 {
		if len(b) > room {
			rw.captured.Write(b[:room])
			rw.truncated = true
		} else {
			rw.captured.Write(b)
		}
	} else if len(b) > 0 {
		rw.truncated = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// requestBody reads at most maxLoggedBody bytes and restores the stream for
// the handler. Multipart uploads are never read here.
func requestBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return "[multipart body omitted]"
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	if err != nil {
		return ""
	}
	r.Body = readCloser{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	truncated := len(head) > maxLoggedBody
	if truncated {
		head = head[:maxLoggedBody]
	}
	return scrubBody(head, truncated)
}

type readCloser struct {
	io.Reader
	io.Closer
}

func scrubHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func scrubBody(body []byte, truncated bool) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if truncated || json.Unmarshal(body, &data) != nil {
		// a partial or non-JSON body cannot be scrubbed key by key
		for _, k := range sensitiveKeys {
			if bytes.Contains(bytes.ToLower(body), []byte(k)) {
				return "[FILTERED - contains sensitive data]"
			}
		}
		if truncated {
			return string(body) + "...[truncated]"
		}
		return string(body)
	}

	out, err := json.Marshal(scrubJSON(data))
	if err != nil {
		return "[ERROR - failed to marshal filtered body]"
	}
	return string(out)
}

func scrubJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = scrubJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = scrubJSON(item)
		}
		return out
	default:
		return v
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
