package user

import "time"

// StaffUser is a dashboard account. TenantID is nil for super admins.
type StaffUser struct {
	ID           int64     `gorm:"primaryKey"`
	TenantID     *int64    `gorm:"column:tenant_id;index"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StaffUser) TableName() string {
	return "staff_users"
}
