package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/resto-order/internal/auth"
	"github.com/frahmantamala/resto-order/internal/order"
	"github.com/frahmantamala/resto-order/internal/payment"
	"github.com/frahmantamala/resto-order/internal/transport/middleware"
	"github.com/frahmantamala/resto-order/internal/transport/swagger"
	"github.com/frahmantamala/resto-order/internal/user"
)

// Dependencies holds everything the router mounts. Nil handlers leave their
// routes unregistered.
type Dependencies struct {
	DB             *sql.DB
	AuthHandler    *auth.Handler
	AuthService    *auth.Service
	UserHandler    *user.Handler
	OrderHandler   *order.Handler
	PaymentHandler *payment.Handler
	WebhookHandler *payment.WebhookHandler

	Limiter            middleware.Limiter
	ClientIPs          *middleware.ClientIPResolver
	CallbackRateLimit  int
	CallbackRateWindow time.Duration
	AllowedOrigins     string

	// ProofDir is served read-only under ProofURLPrefix when both are set.
	ProofDir       string
	ProofURLPrefix string
	OpenAPIPath    string

	// HealthChecks are reported by /api/health but never fail it.
	HealthChecks map[string]Pinger

	Logger *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	healthHandler := NewHealthHandler(deps.DB, deps.HealthChecks)

	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	openAPIPath := deps.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if deps.ProofDir != "" && strings.HasPrefix(deps.ProofURLPrefix, "/") {
		prefix := strings.TrimRight(deps.ProofURLPrefix, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(deps.ProofDir))))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.WebhookHandler != nil {
			r.With(middleware.RateLimit(deps.Limiter, deps.ClientIPs, "callback", deps.CallbackRateLimit, deps.CallbackRateWindow, logger)).
				Post("/payment/callback", deps.WebhookHandler.HandlePaymentCallback)
		}

		r.Route("/public/{tenant_slug}/orders", func(pr chi.Router) {
			if deps.OrderHandler != nil {
				pr.Post("/", deps.OrderHandler.PlaceOrder)
				pr.Get("/{order_code}", deps.OrderHandler.GetOrder)
			}
			if deps.PaymentHandler != nil {
				pr.Post("/{order_code}/payment-proof", deps.PaymentHandler.UploadProof)
			}
		})

		if deps.AuthHandler == nil || deps.AuthService == nil {
			return
		}
		rbac := deps.AuthService.RBACAuthorization()

		r.Route("/staff", func(sr chi.Router) {
			sr.Post("/auth/login", deps.AuthHandler.Login)
			sr.Post("/auth/refresh", deps.AuthHandler.RefreshToken)

			sr.Group(func(pr chi.Router) {
				pr.Use(deps.AuthHandler.AuthMiddleware)

				if deps.UserHandler != nil {
					pr.Get("/me", deps.UserHandler.GetCurrentUser)
				}

				pr.Route("/orders/{order_id}", func(or chi.Router) {
					or.Group(func(vr chi.Router) {
						vr.Use(rbac.RequireViewOrders())
						if deps.OrderHandler != nil {
							vr.Get("/", deps.OrderHandler.GetOrderDetail)
						}
						if deps.PaymentHandler != nil {
							vr.Get("/payments", deps.PaymentHandler.ListPayments)
						}
					})

					if deps.OrderHandler != nil {
						or.Group(func(mr chi.Router) {
							mr.Use(rbac.RequireManageOrders())
							mr.Patch("/status", deps.OrderHandler.UpdateStatus)
							mr.Patch("/invoice-printed", deps.OrderHandler.MarkInvoicePrinted)
						})
					}

					if deps.PaymentHandler != nil {
						or.Group(func(pr chi.Router) {
							pr.Use(rbac.RequireVerifyPayments())
							pr.Post("/payments/{payment_id}/verify", deps.PaymentHandler.VerifyPayment)
						})
					}
				})
			})
		})
	})
}
