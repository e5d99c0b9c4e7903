package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	PermissionViewOrders     = "view_orders"
	PermissionManageOrders   = "manage_orders"
	PermissionVerifyPayments = "verify_payments"
)

const (
	RoleKitchen     = "kitchen"
	RoleCashier     = "cashier"
	RoleTenantAdmin = "tenant_admin"
	RoleSuperAdmin  = "super_admin"
)

var rolePermissions = map[string][]string{
	RoleKitchen:     {PermissionViewOrders, PermissionManageOrders},
	RoleCashier:     {PermissionViewOrders, PermissionManageOrders, PermissionVerifyPayments},
	RoleTenantAdmin: {PermissionViewOrders, PermissionManageOrders, PermissionVerifyPayments},
	RoleSuperAdmin:  {PermissionViewOrders, PermissionManageOrders, PermissionVerifyPayments},
}

// PermissionsForRole returns a copy; unknown roles get nothing.
func PermissionsForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// User is the authenticated staff member attached to a request.
type User struct {
	ID          int64    `json:"id"`
	TenantID    *int64   `json:"tenant_id,omitempty"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (u *User) HasAnyPermission(permissions []string) bool {
	for _, userPerm := range u.Permissions {
		for _, requiredPerm := range permissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID    int64  `json:"user_id"`
	TenantID  *int64 `json:"tenant_id,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type userContextKey struct{}

var ContextUserKey = userContextKey{}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
