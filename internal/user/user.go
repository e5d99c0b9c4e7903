package user

import "time"

// ProfileRow is the joined staff_users/tenants row read by the repository.
type ProfileRow struct {
	ID         int64     `db:"id"`
	TenantID   *int64    `db:"tenant_id"`
	TenantName *string   `db:"tenant_name"`
	TenantSlug *string   `db:"tenant_slug"`
	Email      string    `db:"email"`
	Name       string    `db:"name"`
	Role       string    `db:"role"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

type Tenant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Profile is what a staff member sees about their own account.
type Profile struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Tenant      *Tenant   `json:"tenant,omitempty"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromRow(row *ProfileRow, permissions []string) *Profile {
	p := &Profile{
		ID:          row.ID,
		Email:       row.Email,
		Name:        row.Name,
		Role:        row.Role,
		Permissions: permissions,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
	}
	if row.TenantID != nil {
		p.Tenant = &Tenant{ID: *row.TenantID}
		if row.TenantName != nil {
			p.Tenant.Name = *row.TenantName
		}
		if row.TenantSlug != nil {
			p.Tenant.Slug = *row.TenantSlug
		}
	}
	return p
}
