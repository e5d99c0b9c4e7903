package order

import (
	"time"

	"github.com/shopspring/decimal"

	orderDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/order"
)

type Order struct {
	ID               int64
	TenantID         int64
	TableID          int64
	Code             string
	CustomerName     *string
	CustomerNote     *string
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	Status           Status
	Subtotal         decimal.Decimal
	TaxAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	InvoicePrintedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []Item
}

// Item carries snapshots so later catalog edits never rewrite history.
type Item struct {
	ID       int64
	MenuID   *int64
	MenuName string
	Price    decimal.Decimal
	Qty      int
	Subtotal decimal.Decimal
	Note     *string
	Options  []ItemOption
}

type ItemOption struct {
	ID           int64
	OptionItemID *int64
	GroupName    string
	Label        string
	ExtraPrice   decimal.Decimal
}

type Log struct {
	ID         int64
	OrderID    int64
	FromStatus *Status
	ToStatus   Status
	Note       string
	UserID     *int64
	CreatedAt  time.Time
}

func (o *Order) ToDataModel() *orderDatamodel.Order {
	row := &orderDatamodel.Order{
		ID:               o.ID,
		TenantID:         o.TenantID,
		TableID:          o.TableID,
		OrderCode:        o.Code,
		CustomerName:     o.CustomerName,
		CustomerNote:     o.CustomerNote,
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		OrderStatus:      string(o.Status),
		Subtotal:         o.Subtotal,
		TaxAmount:        o.TaxAmount,
		TotalAmount:      o.TotalAmount,
		InvoicePrintedAt: o.InvoicePrintedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	for _, it := range o.Items {
		itemRow := orderDatamodel.OrderItem{
			ID:               it.ID,
			OrderID:          o.ID,
			MenuID:           it.MenuID,
			MenuNameSnapshot: it.MenuName,
			PriceSnapshot:    it.Price,
			Qty:              it.Qty,
			Subtotal:         it.Subtotal,
			ItemNote:         it.Note,
		}
		for _, opt := range it.Options {
			itemRow.Options = append(itemRow.Options, orderDatamodel.OrderItemOption{
				ID:                      opt.ID,
				OrderItemID:             it.ID,
				OptionItemID:            opt.OptionItemID,
				OptionGroupNameSnapshot: opt.GroupName,
				OptionItemLabelSnapshot: opt.Label,
				ExtraPriceSnapshot:      opt.ExtraPrice,
			})
		}
		row.Items = append(row.Items, itemRow)
	}
	return row
}

func FromDataModel(row *orderDatamodel.Order) *Order {
	o := &Order{
		ID:               row.ID,
		TenantID:         row.TenantID,
		TableID:          row.TableID,
		Code:             row.OrderCode,
		CustomerName:     row.CustomerName,
		CustomerNote:     row.CustomerNote,
		PaymentMethod:    PaymentMethod(row.PaymentMethod),
		PaymentStatus:    PaymentStatus(row.PaymentStatus),
		Status:           Status(row.OrderStatus),
		Subtotal:         row.Subtotal,
		TaxAmount:        row.TaxAmount,
		TotalAmount:      row.TotalAmount,
		InvoicePrintedAt: row.InvoicePrintedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	for _, itemRow := range row.Items {
		it := Item{
			ID:       itemRow.ID,
			MenuID:   itemRow.MenuID,
			MenuName: itemRow.MenuNameSnapshot,
			Price:    itemRow.PriceSnapshot,
			Qty:      itemRow.Qty,
			Subtotal: itemRow.Subtotal,
			Note:     itemRow.ItemNote,
		}
		for _, optRow := range itemRow.Options {
			it.Options = append(it.Options, ItemOption{
				ID:           optRow.ID,
				OptionItemID: optRow.OptionItemID,
				GroupName:    optRow.OptionGroupNameSnapshot,
				Label:        optRow.OptionItemLabelSnapshot,
				ExtraPrice:   optRow.ExtraPriceSnapshot,
			})
		}
		o.Items = append(o.Items, it)
	}
	return o
}

func LogFromDataModel(row *orderDatamodel.OrderLog) *Log {
	l := &Log{
		ID:        row.ID,
		OrderID:   row.OrderID,
		ToStatus:  Status(row.ToStatus),
		Note:      row.Note,
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt,
	}
	if row.FromStatus != nil {
		from := Status(*row.FromStatus)
		l.FromStatus = &from
	}
	return l
}

// NewLogRow builds an order log row. A nil from marks the creation entry.
func NewLogRow(orderID int64, from *Status, to Status, note string, userID *int64) *orderDatamodel.OrderLog {
	row := &orderDatamodel.OrderLog{
		OrderID:  orderID,
		ToStatus: string(to),
		Note:     note,
		UserID:   userID,
	}
	if from != nil {
		f := string(*from)
		row.FromStatus = &f
	}
	return row
}
