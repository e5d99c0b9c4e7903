package payment

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/core/common/validation"
	"github.com/frahmantamala/resto-order/internal/order"
)

type SubmitPaymentDTO struct {
	Method        string           `json:"method,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	BankName      *string          `json:"bank_name,omitempty"`
	AccountNumber *string          `json:"account_number,omitempty"`
	Note          *string          `json:"note,omitempty"`
}

func (d *SubmitPaymentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("method", strings.ToLower(strings.TrimSpace(d.Method))).
		OneOf(order.PaymentMethodStrings(), errors.ErrCodeInvalidPaymentMethod)
	v.Field("amount", d.Amount).PositiveDecimal(errors.ErrCodeInvalidAmount)
	v.Field("bank_name", d.BankName).MaxLength(100)
	v.Field("account_number", d.AccountNumber).MaxLength(50)
	v.Field("note", d.Note).MaxLength(500)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// MethodFor falls back to the order's own method when none was given.
func (d *SubmitPaymentDTO) MethodFor(o *order.Order) order.PaymentMethod {
	if m, ok := order.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(d.Method))); ok {
		return m
	}
	return o.PaymentMethod
}

// CallbackPayload is the gateway notification body. Amount is kept raw so
// the signature is computed over the exact literal that was sent.
type CallbackPayload struct {
	MerchantCode string          `json:"merchant_code"`
	MerchantRef  string          `json:"merchant_ref"`
	Reference    string          `json:"reference"`
	Amount       json.RawMessage `json:"amount"`
	Status       string          `json:"status"`
	Method       string          `json:"method"`
	BankName     *string         `json:"bank_name,omitempty"`
	Signature    string          `json:"signature"`
}

// Ref returns merchant_ref, or the reference alias.
func (p *CallbackPayload) Ref() string {
	if ref := strings.TrimSpace(p.MerchantRef); ref != "" {
		return ref
	}
	return strings.TrimSpace(p.Reference)
}

// AmountLiteral renders amount as received: string values are unquoted,
// numbers are kept verbatim.
func (p *CallbackPayload) AmountLiteral() string {
	raw := bytes.TrimSpace(p.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

// MissingFields lists the required fields that are absent.
func (p *CallbackPayload) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(p.MerchantCode) == "" {
		missing = append(missing, "merchant_code")
	}
	if p.Ref() == "" {
		missing = append(missing, "merchant_ref")
	}
	if p.AmountLiteral() == "" {
		missing = append(missing, "amount")
	}
	return missing
}

type CallbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SubmitResponse struct {
	PaymentID int64   `json:"payment_id"`
	ProofURL  *string `json:"proof_url"`
}

type Response struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	BankName      *string         `json:"bank_name"`
	AccountNumber *string         `json:"account_number"`
	ProofURL      *string         `json:"proof_url"`
	Note          *string         `json:"note"`
	VerifiedAt    *time.Time      `json:"verified_at"`
	VerifiedBy    *int64          `json:"verified_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewResponse(p *Payment) Response {
	return Response{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        string(p.Method),
		BankName:      p.BankName,
		AccountNumber: p.AccountNumber,
		ProofURL:      p.ProofURL,
		Note:          p.Note,
		VerifiedAt:    p.VerifiedAt,
		VerifiedBy:    p.VerifiedBy,
		CreatedAt:     p.CreatedAt,
	}
}

func NewResponses(payments []*Payment) []Response {
	out := make([]Response, 0, len(payments))
	for _, p := range payments {
		out = append(out, NewResponse(p))
	}
	return out
}
