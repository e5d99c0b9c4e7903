package payment

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/auth"
	"github.com/frahmantamala/resto-order/internal/order"
	"github.com/frahmantamala/resto-order/internal/tenant"
	"github.com/frahmantamala/resto-order/internal/transport"
	"github.com/frahmantamala/resto-order/pkg/logger"
)

// multipart overhead allowed on top of the proof size limit
const formOverhead = 64 * 1024

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	Orders        order.ServiceAPI
	Tenants       tenant.ServiceAPI
	ProofMaxBytes int64
}

func NewHandler(service ServiceAPI, orders order.ServiceAPI, tenants tenant.ServiceAPI, proofMaxBytes int64) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if proofMaxBytes <= 0 {
		proofMaxBytes = DefaultProofMaxBytes
	}
	return &Handler{
		BaseHandler:   transport.NewBaseHandler(lg),
		Service:       service,
		Orders:        orders,
		Tenants:       tenants,
		ProofMaxBytes: proofMaxBytes,
	}
}

// UploadProof handles POST /public/{tenant_slug}/orders/{order_code}/payment-proof
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.Tenants.ResolveBySlug(ctx, chi.URLParam(r, "tenant_slug"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	ord, err := h.Orders.GetByCode(ctx, t, chi.URLParam(r, "order_code"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.ProofMaxBytes+formOverhead)
	if err := r.ParseMultipartForm(h.ProofMaxBytes + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.HandleServiceError(w, errors.NewValidationFieldError("proof", "proof file is too large", errors.ErrCodeInvalidProofFile))
			return
		}
		h.Logger.Warn("UploadProof: invalid multipart body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("proof")
	if err != nil {
		h.HandleServiceError(w, errors.NewValidationFieldError("proof", "proof is required", errors.ErrCodeInvalidProofFile))
		return
	}
	defer file.Close()

	dto, err := submitDTOFromForm(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Submit(ctx, t, ord, dto, &ProofFile{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		h.Logger.Warn("UploadProof: service error", "error", err, "order_id", ord.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, SubmitResponse{PaymentID: p.ID, ProofURL: p.ProofURL})
}

// ListPayments handles GET /staff/orders/{order_id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	t, _, ord, ok := h.staffOrder(w, r)
	if !ok {
		return
	}

	payments, err := h.Service.ListByOrder(r.Context(), ord)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Debug("payments listed", "order_id", ord.ID, "tenant_id", t.ID, "count", len(payments))
	h.WriteJSON(w, http.StatusOK, NewResponses(payments))
}

// VerifyPayment handles POST /staff/orders/{order_id}/payments/{payment_id}/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	t, user, ord, ok := h.staffOrder(w, r)
	if !ok {
		return
	}

	paymentID, err := strconv.ParseInt(chi.URLParam(r, "payment_id"), 10, 64)
	if err != nil || paymentID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid payment ID")
		return
	}

	p, err := h.Service.MarkAsPaid(r.Context(), t, ord, paymentID, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewResponse(p))
}

func (h *Handler) staffOrder(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, *auth.User, *order.Order, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, nil, false
	}

	t, err := h.Tenants.ResolveForStaff(r.Context(), user.TenantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, nil, nil, false
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid order ID")
		return nil, nil, nil, false
	}

	ord, err := h.Orders.GetByID(r.Context(), t, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, nil, nil, false
	}

	return t, user, ord, true
}

func submitDTOFromForm(r *http.Request) (*SubmitPaymentDTO, error) {
	dto := &SubmitPaymentDTO{
		Method:        r.FormValue("method"),
		BankName:      optional(r.FormValue("bank_name")),
		AccountNumber: optional(r.FormValue("account_number")),
		Note:          optional(r.FormValue("note")),
	}
	if raw := strings.TrimSpace(r.FormValue("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.NewValidationFieldError("amount", "amount must be a number", errors.ErrCodeInvalidAmount)
		}
		dto.Amount = &amount
	}
	return dto, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
