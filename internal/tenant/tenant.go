package tenant

import (
	"github.com/shopspring/decimal"

	tenantDatamodel "github.com/frahmantamala/resto-order/internal/core/datamodel/tenant"
)

// Tenant is a restaurant account. Every catalog and order query is scoped
// by its ID.
type Tenant struct {
	ID            int64            `json:"id"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage,omitempty"`
	IsActive      bool             `json:"is_active"`
}

type Table struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	Name     string `json:"name"`
	QRToken  string `json:"-"`
	IsActive bool   `json:"is_active"`
}

// TaxRate returns the configured percentage, or zero when none is set.
func (t *Tenant) TaxRate() decimal.Decimal {
	if t == nil || t.TaxPercentage == nil {
		return decimal.Zero
	}
	return *t.TaxPercentage
}

func FromDataModel(t *tenantDatamodel.Tenant) *Tenant {
	return &Tenant{
		ID:            t.ID,
		Slug:          t.Slug,
		Name:          t.Name,
		TaxPercentage: t.TaxPercentage,
		IsActive:      t.IsActive,
	}
}

func TableFromDataModel(t *tenantDatamodel.Table) *Table {
	return &Table{
		ID:       t.ID,
		TenantID: t.TenantID,
		Name:     t.Name,
		QRToken:  t.QRToken,
		IsActive: t.IsActive,
	}
}
