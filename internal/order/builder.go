package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/resto-order/internal"
	"github.com/frahmantamala/resto-order/internal/catalog"
	"github.com/frahmantamala/resto-order/internal/tenant"
)

// Builder turns a customer request into a priced, unsaved order. Every menu
// and option is resolved inside the tenant; one bad line rejects the order.
type Builder struct {
	catalog catalog.ServiceAPI
}

func NewBuilder(catalog catalog.ServiceAPI) *Builder {
	return &Builder{catalog: catalog}
}

func (b *Builder) Build(ctx context.Context, t *tenant.Tenant, table *tenant.Table, dto *PlaceOrderDTO) (*Order, error) {
	if table == nil || table.TenantID != t.ID {
		return nil, errors.ErrTableNotFound
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	menuIDs := make([]int64, 0, len(dto.Items))
	seen := make(map[int64]struct{}, len(dto.Items))
	for _, in := range dto.Items {
		if _, ok := seen[in.MenuID]; !ok {
			seen[in.MenuID] = struct{}{}
			menuIDs = append(menuIDs, in.MenuID)
		}
	}

	menus, err := b.catalog.AvailableMenus(ctx, t.ID, menuIDs)
	if err != nil {
		return nil, errors.NewInternalError("failed to load menus", err)
	}

	items := make([]Item, 0, len(dto.Items))
	subtotals := make([]decimal.Decimal, 0, len(dto.Items))
	for i, in := range dto.Items {
		menu, ok := menus[in.MenuID]
		if !ok {
			return nil, errors.NewValidationFieldError(
				fmt.Sprintf("items[%d].menu_id", i),
				fmt.Sprintf("menu %d is not available", in.MenuID),
				errors.ErrCodeMenuNotAvailable)
		}

		qty := in.Qty
		if qty < 1 {
			qty = 1
		}

		optionIDs := dedupe(in.OptionItemIDs)
		options, err := b.catalog.SelectableOptions(ctx, t.ID, menu.ID, optionIDs)
		if err != nil {
			return nil, errors.NewInternalError("failed to load option items", err)
		}

		item := Item{
			MenuID:   &menu.ID,
			MenuName: menu.Name,
			Price:    menu.Price,
			Qty:      qty,
			Note:     trimmed(in.ItemNote),
			Options:  make([]ItemOption, 0, len(optionIDs)),
		}
		extras := make([]decimal.Decimal, 0, len(optionIDs))
		for _, id := range optionIDs {
			opt, ok := options[id]
			if !ok {
				return nil, errors.NewValidationFieldError(
					fmt.Sprintf("items[%d].option_item_ids", i),
					fmt.Sprintf("option item %d is not available for menu %d", id, menu.ID),
					errors.ErrCodeInvalidOption)
			}
			optionItemID := opt.ItemID
			item.Options = append(item.Options, ItemOption{
				OptionItemID: &optionItemID,
				GroupName:    opt.GroupName,
				Label:        opt.Label,
				ExtraPrice:   opt.ExtraPrice,
			})
			extras = append(extras, opt.ExtraPrice)
		}
		item.Subtotal = ItemSubtotal(menu.Price, extras, qty)

		items = append(items, item)
		subtotals = append(subtotals, item.Subtotal)
	}

	subtotal, tax, total := Totals(subtotals, t.TaxRate())
	if !total.IsPositive() {
		// payments.amount must be positive, so a free order could never be paid
		return nil, errors.NewValidationFieldError("items", "order total must be greater than zero", errors.ErrCodeInvalidAmount)
	}
	method := dto.Method()

	return &Order{
		TenantID:      t.ID,
		TableID:       table.ID,
		CustomerName:  trimmed(dto.CustomerName),
		CustomerNote:  trimmed(dto.CustomerNote),
		PaymentMethod: method,
		PaymentStatus: method.InitialPaymentStatus(),
		Status:        StatusPending,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		TotalAmount:   total,
		Items:         items,
	}, nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
