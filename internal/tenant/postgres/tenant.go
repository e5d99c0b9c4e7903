package postgres

import (
	"context"
	"errors"

	tenantDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/tenant"
	"github.com/frahmantamala/resto-order/internal/tenant"
	"gorm.io/gorm"
)

type TenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) tenant.RepositoryAPI {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenantDatamodel.Tenant, error) {
	var t tenantDatamodel.Tenant
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*tenantDatamodel.Tenant, error) {
	var t tenantDatamodel.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetTableByQRToken(ctx context.Context, tenantID int64, qrToken string) (*tenantDatamodel.Table, error) {
	var t tenantDatamodel.Table
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND qr_token = ?", tenantID, qrToken).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) GetTableByID(ctx context.Context, tenantID, tableID int64) (*tenantDatamodel.Table, error) {
	var t tenantDatamodel.Table
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, tableID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}
