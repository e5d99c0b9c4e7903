package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/core/common/validation"
)

type PlaceOrderDTO struct {
	QRToken       string         `json:"qr_token"`
	CustomerName  *string        `json:"customer_name,omitempty"`
	CustomerNote  *string        `json:"customer_note,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	Items         []OrderItemDTO `json:"items"`
}

type OrderItemDTO struct {
	MenuID        int64   `json:"menu_id"`
	Qty           int     `json:"qty"`
	ItemNote      *string `json:"item_note,omitempty"`
	OptionItemIDs []int64 `json:"option_item_ids,omitempty"`
}

func (d *PlaceOrderDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("items", d.Items).Required()
	v.Field("payment_method", strings.ToLower(strings.TrimSpace(d.PaymentMethod))).
		OneOf(PaymentMethodStrings(), errors.ErrCodeInvalidPaymentMethod)
	v.Field("customer_name", d.CustomerName).MaxLength(100)
	v.Field("customer_note", d.CustomerNote).MaxLength(500)
	for i, item := range d.Items {
		v.Field(fmt.Sprintf("items[%d].menu_id", i), item.MenuID).Required()
		v.Field(fmt.Sprintf("items[%d].item_note", i), item.ItemNote).MaxLength(255)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Method resolves the requested payment method, defaulting to cash.
func (d *PlaceOrderDTO) Method() PaymentMethod {
	m, ok := ParsePaymentMethod(strings.ToLower(strings.TrimSpace(d.PaymentMethod)))
	if !ok {
		return PaymentMethodCash
	}
	return m
}

type TransitionDTO struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (d *TransitionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required()
	v.Field("note", d.Note).MaxLength(255)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type ItemOptionResponse struct {
	GroupName  string          `json:"group_name"`
	Label      string          `json:"label"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

type ItemResponse struct {
	MenuID   *int64               `json:"menu_id"`
	MenuName string               `json:"menu_name"`
	Price    decimal.Decimal      `json:"price"`
	Qty      int                  `json:"qty"`
	Subtotal decimal.Decimal      `json:"subtotal"`
	ItemNote *string              `json:"item_note,omitempty"`
	Options  []ItemOptionResponse `json:"options"`
}

// Summary is the customer facing view of an order.
type Summary struct {
	OrderCode        string          `json:"order_code"`
	TableID          int64           `json:"table_id"`
	CustomerName     *string         `json:"customer_name,omitempty"`
	CustomerNote     *string         `json:"customer_note,omitempty"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	OrderStatus      Status          `json:"order_status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InvoicePrintedAt *time.Time      `json:"invoice_printed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Items            []ItemResponse  `json:"items"`
}

func NewSummary(o *Order) *Summary {
	s := &Summary{
		OrderCode:        o.Code,
		TableID:          o.TableID,
		CustomerName:     o.CustomerName,
		CustomerNote:     o.CustomerNote,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		OrderStatus:      o.Status,
		Subtotal:         o.Subtotal,
		TaxAmount:        o.TaxAmount,
		TotalAmount:      o.TotalAmount,
		InvoicePrintedAt: o.InvoicePrintedAt,
		CreatedAt:        o.CreatedAt,
		Items:            make([]ItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		item := ItemResponse{
			MenuID:   it.MenuID,
			MenuName: it.MenuName,
			Price:    it.Price,
			Qty:      it.Qty,
			Subtotal: it.Subtotal,
			ItemNote: it.Note,
			Options:  make([]ItemOptionResponse, 0, len(it.Options)),
		}
		for _, opt := range it.Options {
			item.Options = append(item.Options, ItemOptionResponse{
				GroupName:  opt.GroupName,
				Label:      opt.Label,
				ExtraPrice: opt.ExtraPrice,
			})
		}
		s.Items = append(s.Items, item)
	}
	return s
}

type LogResponse struct {
	FromStatus *Status   `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Note       string    `json:"note"`
	UserID     *int64    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Detail is the staff view: summary, audit trail and the next legal statuses.
type Detail struct {
	ID           int64         `json:"id"`
	Summary      *Summary      `json:"order"`
	Logs         []LogResponse `json:"logs"`
	NextStatuses []Status      `json:"next_statuses"`
}

func NewDetail(o *Order, logs []*Log) *Detail {
	d := &Detail{
		ID:           o.ID,
		Summary:      NewSummary(o),
		Logs:         make([]LogResponse, 0, len(logs)),
		NextStatuses: AllowedTransitions(o.Status),
	}
	for _, l := range logs {
		d.Logs = append(d.Logs, LogResponse{
			FromStatus: l.FromStatus,
			ToStatus:   l.ToStatus,
			Note:       l.Note,
			UserID:     l.UserID,
			CreatedAt:  l.CreatedAt,
		})
	}
	return d
}
