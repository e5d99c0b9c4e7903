package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID               int64           `gorm:"primaryKey"`
	TenantID         int64           `gorm:"column:tenant_id;not null;uniqueIndex:idx_orders_tenant_code,priority:1"`
	TableID          int64           `gorm:"column:table_id;not null;index"`
	OrderCode        string          `gorm:"column:order_code;not null;uniqueIndex:idx_orders_tenant_code,priority:2;index"`
	CustomerName     *string         `gorm:"column:customer_name"`
	CustomerNote     *string         `gorm:"column:customer_note"`
	PaymentMethod    string          `gorm:"column:payment_method;not null"`
	PaymentStatus    string          `gorm:"column:payment_status;not null"`
	OrderStatus      string          `gorm:"column:order_status;not null"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null"`
	TaxAmount        decimal.Decimal `gorm:"column:tax_amount;type:decimal(12,2);not null"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null"`
	InvoicePrintedAt *time.Time      `gorm:"column:invoice_printed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID               int64           `gorm:"primaryKey"`
	OrderID          int64           `gorm:"column:order_id;not null;index"`
	MenuID           *int64          `gorm:"column:menu_id"`
	MenuNameSnapshot string          `gorm:"column:menu_name_snapshot;not null"`
	PriceSnapshot    decimal.Decimal `gorm:"column:price_snapshot;type:decimal(12,2);not null"`
	Qty              int             `gorm:"column:qty;not null"`
	Subtotal         decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null"`
	ItemNote         *string         `gorm:"column:item_note"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`

	Options []OrderItemOption `gorm:"foreignKey:OrderItemID"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

type OrderItemOption struct {
	ID                      int64           `gorm:"primaryKey"`
	OrderItemID             int64           `gorm:"column:order_item_id;not null;index"`
	OptionItemID            *int64          `gorm:"column:option_item_id"`
	OptionGroupNameSnapshot string          `gorm:"column:option_group_name_snapshot;not null"`
	OptionItemLabelSnapshot string          `gorm:"column:option_item_label_snapshot;not null"`
	ExtraPriceSnapshot      decimal.Decimal `gorm:"column:extra_price_snapshot;type:decimal(12,2);not null"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItemOption) TableName() string {
	return "order_item_options"
}

// OrderLog rows are append-only.
type OrderLog struct {
	ID         int64     `gorm:"primaryKey"`
	OrderID    int64     `gorm:"column:order_id;not null;index"`
	FromStatus *string   `gorm:"column:from_status"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	Note       string    `gorm:"column:note"`
	UserID     *int64    `gorm:"column:user_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLog) TableName() string {
	return "order_logs"
}
