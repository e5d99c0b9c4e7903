package payment

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"

	errors "github.com/frahmantamala/resto-order/internal"
	paymentDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/payment"
	"github.com/frahmantamala/resto-order/internal/transport"
	"github.com/frahmantamala/resto-order/pkg/logger"
)

const (
	SignatureHeader = "X-Callback-Signature"

	maxCallbackBody = 64 * 1024

	// widths of gateway_callbacks.merchant_ref, status and source_ip
	maxJournalRef    = 64
	maxJournalStatus = 32
	maxJournalIP     = 64
)

// redactedHeaders are never written to the callback journal.
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
}

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	verifier       *SignatureVerifier
}

func NewWebhookHandler(paymentService ServiceAPI, verifier *SignatureVerifier) *WebhookHandler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &WebhookHandler{
		BaseHandler:    transport.NewBaseHandler(lg),
		paymentService: paymentService,
		verifier:       verifier,
	}
}

// HandlePaymentCallback handles POST /payment/callback
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx, h.Logger)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		log.Error("failed to read payment callback body", "error", err)
		h.respond(w, http.StatusInternalServerError, false, "failed to read request")
		return
	}

	entry := &paymentDatamodel.GatewayCallback{
		Headers:  journalHeaders(r.Header),
		Payload:  journalPayload(body),
		SourceIP: errors.RequestIPFromContext(ctx),
	}
	if entry.SourceIP == "" {
		entry.SourceIP = r.RemoteAddr
	}
	entry.SourceIP = clip(entry.SourceIP, maxJournalIP)
	defer func() { h.paymentService.RecordCallback(ctx, entry) }()

	var payload CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn("malformed payment callback", "error", err)
	}
	ref := payload.Ref()
	// the full values stay in the payload column
	entry.MerchantRef = clip(ref, maxJournalRef)
	entry.Status = clip(payload.Status, maxJournalStatus)

	if !h.verifier.Configured() {
		log.Error("payment callback rejected: callback private key is not configured", "merchant_ref", ref)
		h.reject(w, entry, http.StatusUnauthorized, OutcomeInvalidSignature, "invalid signature")
		return
	}

	if missing := payload.MissingFields(); len(missing) > 0 {
		log.Warn("payment callback rejected: missing fields", "merchant_ref", ref, "missing", strings.Join(missing, ","))
		h.reject(w, entry, http.StatusUnauthorized, OutcomeInvalidSignature, "invalid signature")
		return
	}

	supplied := r.Header.Get(SignatureHeader)
	if supplied == "" {
		supplied = payload.Signature
	}
	if supplied == "" {
		log.Error("payment callback rejected: signature missing", "merchant_ref", ref)
		h.reject(w, entry, http.StatusUnauthorized, OutcomeInvalidSignature, "invalid signature")
		return
	}

	amount := payload.AmountLiteral()
	if !h.verifier.Verify(payload.MerchantCode, ref, amount, supplied) {
		log.Warn("payment callback rejected: signature mismatch", "merchant_ref", ref, "merchant_code", payload.MerchantCode)
		h.reject(w, entry, http.StatusUnauthorized, OutcomeInvalidSignature, "invalid signature")
		return
	}
	entry.SignatureValid = true

	log.Info("received payment callback", "merchant_ref", ref, "status", payload.Status, "amount", amount)

	result, err := h.paymentService.ApplyGatewayCallback(ctx, &Callback{
		MerchantRef: ref,
		Status:      ParseGatewayStatus(payload.Status),
		Amount:      amount,
		BankName:    payload.BankName,
	})
	if err != nil {
		appErr, _ := errors.IsAppError(err)
		if appErr != nil && appErr.Type == errors.ErrorTypeNotFound {
			log.Warn("payment callback for unknown order", "merchant_ref", ref, "reason", appErr.Message)
			h.reject(w, entry, http.StatusNotFound, OutcomeOrderNotFound, appErr.Message)
			return
		}
		log.Error("failed to process payment callback", "error", err, "merchant_ref", ref)
		h.reject(w, entry, http.StatusInternalServerError, OutcomeError, "failed to process callback")
		return
	}

	entry.Outcome = string(result.Outcome)
	entry.HTTPStatus = http.StatusOK

	log.Info("payment callback processed",
		"merchant_ref", ref,
		"order_id", result.OrderID,
		"outcome", result.Outcome)

	h.respond(w, http.StatusOK, true, callbackMessage(result.Outcome))
}

func (h *WebhookHandler) reject(w http.ResponseWriter, entry *paymentDatamodel.GatewayCallback, status int, outcome Outcome, message string) {
	entry.Outcome = string(outcome)
	entry.HTTPStatus = status
	h.respond(w, status, false, message)
}

func (h *WebhookHandler) respond(w http.ResponseWriter, status int, success bool, message string) {
	h.WriteJSON(w, status, CallbackResponse{Success: success, Message: message})
}

func callbackMessage(o Outcome) string {
	switch o {
	case OutcomePaid:
		return "payment recorded"
	case OutcomeAlreadyPaid:
		return "payment already recorded"
	case OutcomeExpired:
		return "payment marked expired"
	case OutcomeFailed:
		return "payment marked failed"
	case OutcomeIgnored:
		return "status ignored"
	default:
		return "callback processed"
	}
}

func journalHeaders(h http.Header) datatypes.JSON {
	kept := make(map[string]string, len(h))
	for k := range h {
		if redactedHeaders[k] {
			continue
		}
		kept[k] = h.Get(k)
	}
	b, err := json.Marshal(kept)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// journalPayload keeps valid JSON as is and wraps anything else as a string.
// Postgres jsonb refuses invalid UTF-8 and \u0000, so those are wrapped too.
func journalPayload(body []byte) datatypes.JSON {
	if json.Valid(body) && utf8.Valid(body) && !bytes.Contains(body, []byte(`\u0000`)) {
		return datatypes.JSON(body)
	}
	raw := strings.ReplaceAll(strings.ToValidUTF8(string(body), "\uFFFD"), "\x00", "")
	b, _ := json.Marshal(map[string]string{"raw": raw})
	return datatypes.JSON(b)
}

// clip cuts s to at most max runes.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
