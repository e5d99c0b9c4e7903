package middleware_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/transport/middleware"
)

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("LoggingMiddleware", func() {
	var (
		logs *bytes.Buffer
		lg   *slog.Logger
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		lg = slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})

	It("scrubs secrets while the handler still reads the full body", func() {
		var seen string
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"access_token":"jwt-abc","ok":true}`))
		}))

		body := `{"email":"cashier@senja.com","password":"hunter2","signature":"deadbeef"}`
		req := httptest.NewRequest(http.MethodPost, "/api/staff/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer secret-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(seen).To(Equal(body))
		Expect(rec.Code).To(Equal(http.StatusCreated))
		out := logs.String()
		Expect(out).To(ContainSubstring("cashier@senja.com"))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).NotTo(ContainSubstring("deadbeef"))
		Expect(out).NotTo(ContainSubstring("secret-jwt"))
		Expect(out).NotTo(ContainSubstring("jwt-abc"))
		Expect(out).To(ContainSubstring(`"status_code":201`))
	})

	It("never reads multipart uploads", func() {
		var size int
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			size = len(b)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/public/senja/orders/A1/payment-proof", strings.NewReader("--x\r\nbinary\r\n--x--"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(size).To(Equal(len("--x\r\nbinary\r\n--x--")))
		Expect(logs.String()).To(ContainSubstring("multipart body omitted"))
		Expect(logs.String()).To(ContainSubstring(`"status_code":200`))
	})

	It("truncates large bodies", func() {
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 10000)))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/big", nil))

		Expect(rec.Body.Len()).To(Equal(10000))
		Expect(logs.String()).To(ContainSubstring("...[truncated]"))
		Expect(logs.String()).To(ContainSubstring(`"response_size":10000`))
	})
})

type windowLimiter struct {
	hits map[string]int
}

func (l *windowLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

var _ = Describe("RateLimit", func() {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Client-IP", internal.RequestIPFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	callback := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", "198.51.100.99")
		return req
	}

	It("keys on the socket peer with the client ip in context", func() {
		limiter := &stubLimiter{allowed: true}
		rec := httptest.NewRecorder()
		middleware.RateLimit(limiter, nil, "callback", 5, time.Minute, quiet)(ok).ServeHTTP(rec, callback())

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-Client-IP")).To(Equal("203.0.113.7"))
		Expect(limiter.keys).To(Equal([]string{"callback:203.0.113.7"}))
	})

	It("does not let one peer escape the window by rotating X-Forwarded-For", func() {
		limiter := &windowLimiter{hits: map[string]int{}}
		ips, err := middleware.NewClientIPResolver("")
		Expect(err).NotTo(HaveOccurred())
		h := middleware.RateLimit(limiter, ips, "callback", 2, time.Minute, quiet)(ok)

		accepted := 0
		for i := 0; i < 50; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/payment/callback", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code == http.StatusOK {
				accepted++
			}
		}

		Expect(accepted).To(Equal(2))
		Expect(limiter.hits).To(HaveKeyWithValue("callback:203.0.113.9", 50))
	})

	It("answers 429 once the window is exhausted", func() {
		rec := httptest.NewRecorder()
		middleware.RateLimit(&stubLimiter{allowed: false}, nil, "callback", 5, time.Minute, quiet)(ok).ServeHTTP(rec, callback())

		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).To(Equal("60"))
		Expect(rec.Body.String()).To(ContainSubstring(`"success":false`))
	})

	It("fails open when the limiter errors or is absent", func() {
		rec := httptest.NewRecorder()
		middleware.RateLimit(&stubLimiter{err: stderrors.New("redis down")}, nil, "callback", 5, time.Minute, quiet)(ok).ServeHTTP(rec, callback())
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = httptest.NewRecorder()
		middleware.RateLimit(nil, nil, "callback", 5, time.Minute, quiet)(ok).ServeHTTP(rec, callback())
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("ClientIPResolver", func() {
	var ips *middleware.ClientIPResolver

	BeforeEach(func() {
		var err error
		ips, err = middleware.NewClientIPResolver("10.0.0.0/8, 192.0.2.10")
		Expect(err).NotTo(HaveOccurred())
	})

	request := func(remote, xff, realIP string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		if realIP != "" {
			req.Header.Set("X-Real-IP", realIP)
		}
		return req
	}

	It("ignores forwarding headers from untrusted peers", func() {
		Expect(ips.Resolve(request("203.0.113.9:5555", "1.2.3.4", "5.6.7.8"))).To(Equal("203.0.113.9"))
	})

	It("takes the right-most untrusted hop behind a trusted proxy", func() {
		req := request("192.0.2.10:443", "1.2.3.4, 198.51.100.20, 10.1.2.3", "")
		Expect(ips.Resolve(req)).To(Equal("198.51.100.20"))
	})

	It("falls back to X-Real-IP and then the proxy itself", func() {
		Expect(ips.Resolve(request("10.0.0.5:80", "", "198.51.100.2"))).To(Equal("198.51.100.2"))
		Expect(ips.Resolve(request("10.0.0.5:80", "", ""))).To(Equal("10.0.0.5"))
	})

	It("stops at a malformed hop", func() {
		Expect(ips.Resolve(request("10.0.0.5:80", "1.2.3.4, not-an-ip", ""))).To(Equal("10.0.0.5"))
	})

	It("rejects invalid proxy entries", func() {
		_, err := middleware.NewClientIPResolver("10.0.0.0/99")
		Expect(err).To(MatchError(ContainSubstring("invalid trusted proxy")))
	})

	It("reports the bare socket address from ClientIP", func() {
		Expect(middleware.ClientIP(request("192.0.2.1:5555", "1.2.3.4", "5.6.7.8"))).To(Equal("192.0.2.1"))
	})
})

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	It("echoes allowed origins and short-circuits preflight", func() {
		h := middleware.CORS("https://order.senja.id, https://dash.senja.id")(next)

		req := httptest.NewRequest(http.MethodOptions, "/api/public/senja/orders", nil)
		req.Header.Set("Origin", "https://dash.senja.id")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://dash.senja.id"))
	})

	It("omits headers for unknown origins", func() {
		h := middleware.CORS("https://order.senja.id")(next)

		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a 500", func() {
		h := middleware.RecoveryMiddleware(quiet)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("internal server error"))
	})
})

var _ = Describe("RequestID", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	It("propagates an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		rec := httptest.NewRecorder()
		middleware.RequestID(next).ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("mints one when absent", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})
})
