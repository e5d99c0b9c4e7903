package postgres

import (
	"context"

	"github.com/frahmantamala/resto-order/internal/catalog"
	catalogDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/catalog"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalog.RepositoryAPI {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) FindAvailableMenus(ctx context.Context, tenantID int64, ids []int64) ([]*catalogDatamodel.Menu, error) {
	var menus []*catalogDatamodel.Menu
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_available = ? AND id IN ?", tenantID, true, ids).
		Find(&menus).Error
	return menus, err
}

func (r *CatalogRepository) FindSelectableOptions(ctx context.Context, tenantID, menuID int64, optionItemIDs []int64) ([]*catalogDatamodel.SelectableOption, error) {
	var rows []*catalogDatamodel.SelectableOption
	err := r.db.WithContext(ctx).
		Table("option_items AS oi").
		Select("oi.id AS option_item_id, og.id AS option_group_id, og.name AS group_name, oi.label, oi.extra_price").
		Joins("JOIN option_groups og ON og.id = oi.option_group_id").
		Joins("JOIN menu_option_groups mog ON mog.option_group_id = og.id AND mog.menu_id = ?", menuID).
		Where("og.tenant_id = ? AND og.is_active = ? AND oi.is_active = ? AND oi.id IN ?", tenantID, true, true, optionItemIDs).
		Order("og.id ASC, oi.id ASC").
		Scan(&rows).Error
	return rows, err
}
