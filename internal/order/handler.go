package order

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/resto-order/internal/auth"
	"github.com/frahmantamala/resto-order/internal/tenant"
	"github.com/frahmantamala/resto-order/internal/transport"
	"github.com/frahmantamala/resto-order/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Tenants tenant.ServiceAPI
}

func NewHandler(service ServiceAPI, tenants tenant.ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Tenants:     tenants,
	}
}

// PlaceOrder handles POST /public/{tenant_slug}/orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.Tenants.ResolveBySlug(ctx, chi.URLParam(r, "tenant_slug"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto PlaceOrderDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	table, err := h.Tenants.ResolveTable(ctx, t, dto.QRToken)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	ord, err := h.Service.PlaceOrder(ctx, t, table, &dto)
	if err != nil {
		h.Logger.Warn("PlaceOrder: service error", "error", err, "tenant_id", t.ID, "table_id", table.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewSummary(ord))
}

// GetOrder handles GET /public/{tenant_slug}/orders/{order_code}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.Tenants.ResolveBySlug(ctx, chi.URLParam(r, "tenant_slug"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	summary, err := h.Service.GetSummary(ctx, t, chi.URLParam(r, "order_code"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// GetOrderDetail handles GET /staff/orders/{order_id}
func (h *Handler) GetOrderDetail(w http.ResponseWriter, r *http.Request) {
	t, _, orderID, ok := h.staffScope(w, r)
	if !ok {
		return
	}

	ord, err := h.Service.GetByID(r.Context(), t, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	logs, err := h.Service.Logs(r.Context(), t, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewDetail(ord, logs))
}

// UpdateStatus handles PATCH /staff/orders/{order_id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	t, user, orderID, ok := h.staffScope(w, r)
	if !ok {
		return
	}

	var dto TransitionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	actorID := user.ID
	ord, err := h.Service.Transition(r.Context(), t, orderID, Status(dto.Status), &actorID, dto.Note)
	if err != nil {
		h.Logger.Warn("UpdateStatus: transition rejected", "error", err, "order_id", orderID, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	logs, err := h.Service.Logs(r.Context(), t, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewDetail(ord, logs))
}

// MarkInvoicePrinted handles PATCH /staff/orders/{order_id}/invoice-printed
func (h *Handler) MarkInvoicePrinted(w http.ResponseWriter, r *http.Request) {
	t, _, orderID, ok := h.staffScope(w, r)
	if !ok {
		return
	}

	ord, err := h.Service.MarkInvoicePrinted(r.Context(), t, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewSummary(ord))
}

// staffScope resolves the caller, their tenant and the {order_id} param.
// It writes the error response itself when ok is false.
func (h *Handler) staffScope(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, *auth.User, int64, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, 0, false
	}

	t, err := h.Tenants.ResolveForStaff(r.Context(), user.TenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, nil, 0, false
	}

	idStr := chi.URLParam(r, "order_id")
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || orderID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid order ID")
		return nil, nil, 0, false
	}

	return t, user, orderID, true
}
