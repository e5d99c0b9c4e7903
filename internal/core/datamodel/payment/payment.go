package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment is one attempt against an order. VerifiedAt nil means unverified;
// VerifiedBy nil on a verified row means the gateway verified it. At most one
// verified row exists per (order_id, method).
type Payment struct {
	ID            int64           `gorm:"primaryKey"`
	OrderID       int64           `gorm:"column:order_id;not null;index;uniqueIndex:idx_payments_verified_method,priority:1,where:verified_at IS NOT NULL"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Method        string          `gorm:"column:method;not null;uniqueIndex:idx_payments_verified_method,priority:2"`
	BankName      *string         `gorm:"column:bank_name"`
	AccountNumber *string         `gorm:"column:account_number"`
	ProofURL      *string         `gorm:"column:proof_url"`
	Note          *string         `gorm:"column:note"`
	VerifiedAt    *time.Time      `gorm:"column:verified_at"`
	VerifiedBy    *int64          `gorm:"column:verified_by"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}

// GatewayCallback records every inbound gateway notification, accepted or not.
type GatewayCallback struct {
	ID             int64          `gorm:"primaryKey"`
	MerchantRef    string         `gorm:"column:merchant_ref;index"`
	Status         string         `gorm:"column:status"`
	SignatureValid bool           `gorm:"column:signature_valid;not null"`
	Outcome        string         `gorm:"column:outcome;not null"`
	HTTPStatus     int            `gorm:"column:http_status;not null"`
	Headers        datatypes.JSON `gorm:"column:headers"`
	Payload        datatypes.JSON `gorm:"column:payload"`
	SourceIP       string         `gorm:"column:source_ip"`
	ReceivedAt     time.Time      `gorm:"column:received_at;autoCreateTime"`
}

func (GatewayCallback) TableName() string {
	return "gateway_callbacks"
}
