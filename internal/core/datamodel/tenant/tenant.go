package tenant

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tenant struct {
	ID            int64            `gorm:"primaryKey"`
	Slug          string           `gorm:"column:slug;uniqueIndex;not null"`
	Name          string           `gorm:"column:name;not null"`
	TaxPercentage *decimal.Decimal `gorm:"column:tax_percentage;type:decimal(5,2)"`
	IsActive      bool             `gorm:"column:is_active;not null"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tenant) TableName() string {
	return "tenants"
}

type Table struct {
	ID        int64     `gorm:"primaryKey"`
	TenantID  int64     `gorm:"column:tenant_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	QRToken   string    `gorm:"column:qr_token;uniqueIndex;not null"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Table) TableName() string {
	return "dining_tables"
}
