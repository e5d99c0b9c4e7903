package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Menu struct {
	ID          int64           `gorm:"primaryKey"`
	TenantID    int64           `gorm:"column:tenant_id;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(12,2);not null"`
	IsAvailable bool            `gorm:"column:is_available;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Menu) TableName() string {
	return "menus"
}

type OptionGroup struct {
	ID        int64     `gorm:"primaryKey"`
	TenantID  int64     `gorm:"column:tenant_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OptionGroup) TableName() string {
	return "option_groups"
}

type OptionItem struct {
	ID            int64           `gorm:"primaryKey"`
	OptionGroupID int64           `gorm:"column:option_group_id;not null;index"`
	Label         string          `gorm:"column:label;not null"`
	ExtraPrice    decimal.Decimal `gorm:"column:extra_price;type:decimal(12,2);not null"`
	IsActive      bool            `gorm:"column:is_active;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (OptionItem) TableName() string {
	return "option_items"
}

// MenuOptionGroup attaches an option group to a menu.
type MenuOptionGroup struct {
	MenuID        int64 `gorm:"column:menu_id;primaryKey;autoIncrement:false"`
	OptionGroupID int64 `gorm:"column:option_group_id;primaryKey;autoIncrement:false"`
}

func (MenuOptionGroup) TableName() string {
	return "menu_option_groups"
}

// SelectableOption is the joined row returned when resolving option items
// for a menu.
type SelectableOption struct {
	OptionItemID  int64           `gorm:"column:option_item_id"`
	OptionGroupID int64           `gorm:"column:option_group_id"`
	GroupName     string          `gorm:"column:group_name"`
	Label         string          `gorm:"column:label"`
	ExtraPrice    decimal.Decimal `gorm:"column:extra_price"`
}
