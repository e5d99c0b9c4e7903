package catalog

import (
	"github.com/shopspring/decimal"

	catalogDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/catalog"
)

type Menu struct {
	ID          int64           `json:"id"`
	TenantID    int64           `json:"tenant_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

// Option is an option item that may be applied to a specific menu.
type Option struct {
	ItemID     int64           `json:"option_item_id"`
	GroupID    int64           `json:"option_group_id"`
	GroupName  string          `json:"group_name"`
	Label      string          `json:"label"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

func MenuFromDataModel(m *catalogDatamodel.Menu) *Menu {
	return &Menu{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Price:       m.Price,
		IsAvailable: m.IsAvailable,
	}
}

func OptionFromDataModel(o *catalogDatamodel.SelectableOption) *Option {
	return &Option{
		ItemID:     o.OptionItemID,
		GroupID:    o.OptionGroupID,
		GroupName:  o.GroupName,
		Label:      o.Label,
		ExtraPrice: o.ExtraPrice,
	}
}
