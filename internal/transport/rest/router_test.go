package rest_test

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/resto-order/internal/auth"
	userDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/user"
	"github.com/frahmantamala/resto-order/internal/transport/rest"
)

type noStaff struct{}

func (noStaff) GetByEmail(context.Context, string) (*userDatamodel.StaffUser, error) { return nil, nil }
func (noStaff) GetByID(context.Context, int64) (*userDatamodel.StaffUser, error)     { return nil, nil }

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var _ = ginkgo.Describe("RegisterAllRoutes", func() {
	var (
		sqlDB  *sql.DB
		router *chi.Mux
		deps   rest.Dependencies
	)

	serve := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	ginkgo.BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		sqlDB, err = db.DB()
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		authService := auth.NewService(noStaff{}, auth.NewJWTTokenGenerator(
			"access-secret-access-secret-access-secret",
			"refresh-secret-refresh-secret-refresh-secret",
			time.Minute, time.Hour,
		), quiet)

		deps = rest.Dependencies{
			DB:          sqlDB,
			AuthHandler: auth.NewHandler(authService),
			AuthService: authService,
			OpenAPIPath: "../../../api/openapi.yml",
			Logger:      quiet,
		}
		router = chi.NewRouter()
	})

	ginkgo.AfterEach(func() {
		_ = sqlDB.Close()
	})

	ginkgo.It("answers ping", func() {
		rest.RegisterAllRoutes(router, deps)
		rec := serve(http.MethodGet, "/api/ping")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("OK"))
	})

	ginkgo.It("reports optional components without failing readiness", func() {
		deps.HealthChecks = map[string]rest.Pinger{
			"redis": pingerFunc(func(context.Context) error { return stderrors.New("connection refused") }),
		}
		rest.RegisterAllRoutes(router, deps)

		rec := serve(http.MethodGet, "/api/health")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var resp rest.HealthResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		gomega.Expect(resp.Status).To(gomega.Equal(rest.HealthHealthy))
		gomega.Expect(resp.Components["postgres"].Status).To(gomega.Equal(rest.HealthHealthy))
		gomega.Expect(resp.Components["redis"].Status).To(gomega.Equal(rest.HealthUnhealthy))
		gomega.Expect(resp.Components["redis"].Message).To(gomega.Equal("connection refused"))
	})

	ginkgo.It("turns unhealthy when the database is gone", func() {
		rest.RegisterAllRoutes(router, deps)
		gomega.Expect(sqlDB.Close()).To(gomega.Succeed())

		rec := serve(http.MethodGet, "/api/health")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
	})

	ginkgo.It("guards staff routes with a bearer token", func() {
		rest.RegisterAllRoutes(router, deps)

		rec := serve(http.MethodGet, "/api/staff/orders/1")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

		rec = serve(http.MethodPost, "/api/staff/orders/1/payments/2/verify")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("leaves routes without a handler unmounted", func() {
		rest.RegisterAllRoutes(router, deps)

		gomega.Expect(serve(http.MethodPost, "/api/payment/callback").Code).To(gomega.Equal(http.StatusNotFound))
		gomega.Expect(serve(http.MethodPost, "/api/public/warung/orders").Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("serves the openapi document", func() {
		rest.RegisterAllRoutes(router, deps)

		rec := serve(http.MethodGet, "/openapi.yml")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("openapi: 3"))
	})
})
