package payment

import (
	"time"

	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/payment"
	"github.com/frahmantamala/resto-order/internal/order"
)

// Payment is one attempt against an order. An order may collect several,
// for example repeated proof uploads.
type Payment struct {
	ID            int64
	OrderID       int64
	Amount        decimal.Decimal
	Method        order.PaymentMethod
	BankName      *string
	AccountNumber *string
	ProofURL      *string
	Note          *string
	VerifiedAt    *time.Time
	VerifiedBy    *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Payment) IsVerified() bool {
	return p.VerifiedAt != nil
}

// VerifiedByGateway reports a verified payment with no staff actor.
func (p *Payment) VerifiedByGateway() bool {
	return p.VerifiedAt != nil && p.VerifiedBy == nil
}

func (p *Payment) ToDataModel() *paymentDatamodel.Payment {
	return &paymentDatamodel.Payment{
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
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(row *paymentDatamodel.Payment) *Payment {
	return &Payment{
		ID:            row.ID,
		OrderID:       row.OrderID,
		Amount:        row.Amount,
		Method:        order.PaymentMethod(row.Method),
		BankName:      row.BankName,
		AccountNumber: row.AccountNumber,
		ProofURL:      row.ProofURL,
		Note:          row.Note,
		VerifiedAt:    row.VerifiedAt,
		VerifiedBy:    row.VerifiedBy,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
