package app

import (
	"fmt"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"
)

// RoleSystem identifies internal callers such as the gateway webhook.
const RoleSystem domain.Role = "system"

// Capability names an operation gated by role.
type Capability string

const (
	CapApproveWithdrawals Capability = "approve_withdrawals"
	CapViewAdminStats     Capability = "view_admin_stats"
	CapListUsers          Capability = "list_users"
	CapVerifyAnyPix       Capability = "verify_any_pix"
)

var roleCapabilities = map[domain.Role][]Capability{
	domain.RoleAdmin: {CapApproveWithdrawals, CapViewAdminStats, CapListUsers, CapVerifyAnyPix},
	RoleSystem:       {CapVerifyAnyPix},
}

// Actor is the authenticated caller of a workflow.
type Actor struct {
	UserID string
	Role   domain.Role
}

// SystemActor is used for provider callbacks.
var SystemActor = Actor{UserID: "", Role: RoleSystem}

func (a Actor) Can(c Capability) bool {
	for _, granted := range roleCapabilities[a.Role] {
		if granted == c {
			return true
		}
	}
	return false
}

// Authorize is called at the top of every gated workflow entry point.
func Authorize(a Actor, c Capability) error {
	if !a.Can(c) {
		return fmt.Errorf("%w: %s requires %s", domain.ErrForbidden, a.Role, c)
	}
	return nil
}

// requireUser rejects actors that do not carry a user identity.
func requireUser(a Actor) error {
	if a.UserID == "" {
		return fmt.Errorf("%w: authenticated user required", domain.ErrForbidden)
	}
	return nil
}
