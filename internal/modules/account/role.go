package account

import "fmt"

// Role is a staff or customer role. Roles form a total order:
// Administrator > Manager > Employee > Customer.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Rank places the role in the hierarchy. Higher outranks lower.
// Unknown roles rank below everything.
func (r Role) Rank() int {
	switch r {
	case RoleCustomer:
		return 0
	case RoleEmployee:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return -1
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool { return r.Rank() >= 0 }

// IsStaff reports whether the role grants dashboard access.
func (r Role) IsStaff() bool { return r.Rank() >= RoleEmployee.Rank() }

// ParseRole converts a request string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer, RoleEmployee, RoleManager, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Permission is a granular capability flag attached to an identity. Flags
// only narrow what the role already grants; they can never widen it.
type Permission string

const (
	PermCreateProduct   Permission = "can_create_product"
	PermEditProduct     Permission = "can_edit_product"
	PermDeleteProduct   Permission = "can_delete_product"
	PermViewOrders      Permission = "can_view_orders"
	PermManageOrders    Permission = "can_manage_orders"
	PermRefundOrders    Permission = "can_refund_orders"
	PermManageStaff     Permission = "can_manage_staff"
	PermViewAnalytics   Permission = "can_view_analytics"
	PermManageCustomers Permission = "can_manage_customers"
	PermExportData      Permission = "can_export_data"
)

// ParsePermission converts a request string into a Permission.
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case PermCreateProduct, PermEditProduct, PermDeleteProduct,
		PermViewOrders, PermManageOrders, PermRefundOrders,
		PermManageStaff, PermViewAnalytics, PermManageCustomers, PermExportData:
		return Permission(s), nil
	default:
		return "", fmt.Errorf("unknown permission %q", s)
	}
}
