package auth

import "context"

type PermissionChecker interface {
	HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error)
	CanViewOrders(userPermissions []string) bool
	CanManageOrders(userPermissions []string) bool
	CanVerifyPayments(userPermissions []string) bool
}

type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasPermission(ctx context.Context, userPermissions []string, permission string) (bool, error) {
	return c.hasAny(userPermissions, []string{permission}), nil
}

func (c *DefaultPermissionChecker) CanViewOrders(userPermissions []string) bool {
	return c.hasAny(userPermissions, []string{PermissionViewOrders})
}

func (c *DefaultPermissionChecker) CanManageOrders(userPermissions []string) bool {
	return c.hasAny(userPermissions, []string{PermissionManageOrders})
}

func (c *DefaultPermissionChecker) CanVerifyPayments(userPermissions []string) bool {
	return c.hasAny(userPermissions, []string{PermissionVerifyPayments})
}

func (c *DefaultPermissionChecker) hasAny(userPermissions []string, requiredPermissions []string) bool {
	for _, userPerm := range userPermissions {
		for _, requiredPerm := range requiredPermissions {
			if userPerm == requiredPerm {
				return true
			}
		}
	}
	return false
}
