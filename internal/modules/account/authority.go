package account

import (
	"context"
	"errors"
	"time"

	"github.com/versostore/verso-backend/internal/metrics"
	"github.com/versostore/verso-backend/internal/modules/audit"
)

// ErrPermissionDenied is returned by Check when the actor is not allowed to
// perform the action.
var ErrPermissionDenied = errors.New("permission denied")

// Action is something an actor can attempt. Every write path in the system
// funnels through Authorize with one of these.
type Action string

const (
	ActionViewProducts  Action = "view_products"
	ActionCreateProduct Action = "create_product"
	ActionEditProduct   Action = "edit_product"
	ActionDeleteProduct Action = "delete_product"

	ActionViewOrders  Action = "view_orders"
	ActionEditOrder   Action = "edit_order"
	ActionRefundOrder Action = "refund_order"

	ActionViewIdentities   Action = "view_identities"
	ActionEditIdentity     Action = "edit_identity"
	ActionDeleteIdentity   Action = "delete_identity"
	ActionPromoteIdentity  Action = "promote_identity"
	ActionGrantPermission  Action = "grant_permission"
	ActionRevokePermission Action = "revoke_permission"

	ActionManageCustomers Action = "manage_customers"
	ActionExportData      Action = "export_data"
	ActionViewAnalytics   Action = "view_analytics"
)

// capabilities is the static role × action baseline. Anything absent is
// denied. Customers never appear: the dashboard is closed to them entirely.
var capabilities = map[Role]map[Action]bool{
	RoleEmployee: {
		ActionViewProducts:   true,
		ActionCreateProduct:  true,
		ActionEditProduct:    true,
		ActionViewOrders:     true,
		ActionEditOrder:      true,
		ActionViewIdentities: true,
	},
	RoleManager: {
		ActionViewProducts:   true,
		ActionCreateProduct:  true,
		ActionEditProduct:    true,
		ActionDeleteProduct:  true,
		ActionViewOrders:     true,
		ActionEditOrder:      true,
		ActionRefundOrder:    true,
		ActionViewIdentities: true,
		ActionEditIdentity:   true,
		ActionDeleteIdentity: true,

		ActionManageCustomers: true,
		ActionExportData:      true,
		ActionViewAnalytics:   true,
	},
	RoleAdmin: {
		ActionViewProducts:  true,
		ActionCreateProduct: true,
		ActionEditProduct:   true,
		ActionDeleteProduct: true,

		ActionViewOrders:  true,
		ActionEditOrder:   true,
		ActionRefundOrder: true,

		ActionViewIdentities:   true,
		ActionEditIdentity:     true,
		ActionDeleteIdentity:   true,
		ActionPromoteIdentity:  true,
		ActionGrantPermission:  true,
		ActionRevokePermission: true,

		ActionManageCustomers: true,
		ActionExportData:      true,
		ActionViewAnalytics:   true,
	},
}

// actionPermission maps actions to the granular flag that can narrow them.
// Actions with no entry cannot be revoked per-identity.
var actionPermission = map[Action]Permission{
	ActionCreateProduct:    PermCreateProduct,
	ActionEditProduct:      PermEditProduct,
	ActionDeleteProduct:    PermDeleteProduct,
	ActionViewOrders:       PermViewOrders,
	ActionEditOrder:        PermManageOrders,
	ActionRefundOrder:      PermRefundOrders,
	ActionDeleteIdentity:   PermManageStaff,
	ActionPromoteIdentity:  PermManageStaff,
	ActionGrantPermission:  PermManageStaff,
	ActionRevokePermission: PermManageStaff,
	ActionManageCustomers:  PermManageCustomers,
	ActionExportData:       PermExportData,
	ActionViewAnalytics:    PermViewAnalytics,
}

// mutatingIdentityActions are the actions that change another identity.
// Only these trigger the hierarchy guard; read-only actions (view, export)
// between equals stay allowed.
var mutatingIdentityActions = map[Action]bool{
	ActionEditIdentity:     true,
	ActionDeleteIdentity:   true,
	ActionPromoteIdentity:  true,
	ActionGrantPermission:  true,
	ActionRevokePermission: true,
}

// selfProtected are the actions nobody may aim at themselves, whatever their
// role. This keeps the last Administrator from locking everyone out.
var selfProtected = map[Action]bool{
	ActionDeleteIdentity:   true,
	ActionPromoteIdentity:  true,
	ActionRevokePermission: true,
}

// Authority is the single decision point for role-based access. Authorize is
// pure; Check wraps it with the audit and metrics plumbing callers want on
// every write path.
type Authority struct {
	recorder audit.Recorder
}

// NewAuthority creates an Authority. A nil recorder disables audit events.
func NewAuthority(recorder audit.Recorder) *Authority {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Authority{recorder: recorder}
}

// Authorize decides whether actor may perform action on target. Target is
// nil for actions that do not aim at an identity. The function fails closed:
// unknown roles, unknown actions, and nil actors are all denied.
func (a *Authority) Authorize(actor *Identity, action Action, target *Identity) bool {
	if actor == nil || !actor.Role.Valid() {
		return false
	}

	if !capabilities[actor.Role][action] {
		return false
	}

	if p, narrowable := actionPermission[action]; narrowable && actor.HasRevoked(p) {
		return false
	}

	if target != nil && mutatingIdentityActions[action] {
		if !target.Role.Valid() {
			return false
		}
		if actor.ID == target.ID {
			// Self-targeted: the protected actions are denied outright,
			// the rest (profile edits) bypass the hierarchy guard.
			return !selfProtected[action]
		}
		if target.Role.Rank() >= actor.Role.Rank() {
			return false
		}
	}

	return true
}

// Check runs Authorize and, on denial, records an audit event and returns
// ErrPermissionDenied. Every decision is counted.
func (a *Authority) Check(ctx context.Context, actor *Identity, action Action, target *Identity) error {
	if a.Authorize(actor, action, target) {
		metrics.AuthzDecisions.WithLabelValues(string(action), "allowed").Inc()
		return nil
	}
	metrics.AuthzDecisions.WithLabelValues(string(action), "denied").Inc()

	e := audit.Event{Action: string(action), Allowed: false, At: time.Now().UTC()}
	if actor != nil {
		id := actor.ID
		e.ActorID = &id
	}
	if target != nil {
		id := target.ID
		e.TargetID = &id
	}
	a.recorder.Record(ctx, e)

	return ErrPermissionDenied
}
