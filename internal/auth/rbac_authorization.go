package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

// Middleware admits staff holding permission. It must run after AuthMiddleware.
func (ra *RBACAuthorization) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.HandleServiceError(w, errors.ErrInvalidToken)
				return
			}

			allowed, err := ra.checker.HasPermission(r.Context(), user.Permissions, permission)
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID, "permission", permission)
				ra.HandleServiceError(w, errors.NewInternalError("authorization check failed", err))
				return
			}
			if !allowed {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"role", user.Role,
					"required_permission", permission)
				ra.HandleServiceError(w, errors.NewForbiddenError("insufficient permissions", errors.ErrCodeInsufficientAccess))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireViewOrders() func(http.Handler) http.Handler {
	return ra.Middleware(PermissionViewOrders)
}

func (ra *RBACAuthorization) RequireManageOrders() func(http.Handler) http.Handler {
	return ra.Middleware(PermissionManageOrders)
}

func (ra *RBACAuthorization) RequireVerifyPayments() func(http.Handler) http.Handler {
	return ra.Middleware(PermissionVerifyPayments)
}
