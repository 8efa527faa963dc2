// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package sec

// # User Roles

// UserRole represents the coarse-grained access level granted to an identity.
//
// Roles are NOT linearly ordered: a property lawyer is not "above" or "below"
// an auditor. The only privilege relation is that admin and super_admin are
// platform-wide superusers, implicitly allowed on every guarded route.
type UserRole string

const (
	// Default role for every self-registered identity
	RoleUser UserRole = "user"

	// Manages investor accounts and onboarding
	RoleAccountManager UserRole = "account_manager"

	// Reviews title deeds and transfer documents
	RolePropertyLawyer UserRole = "property_lawyer"

	// Read-heavy access for financial audits
	RoleAuditor UserRole = "auditor"

	// KYC/AML review and allow-list management
	RoleCompliance UserRole = "compliance"

	// Day-to-day marketplace operations desk
	RoleFrontOffice UserRole = "front_office"

	// Platform administrator, allowed on every guarded route
	RoleAdmin UserRole = "admin"

	// Operator account with admin access plus wildcard permissions
	RoleSuperAdmin UserRole = "super_admin"
)

// IsValid checks if the role is one of the predefined valid roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAccountManager, RolePropertyLawyer, RoleAuditor,
		RoleCompliance, RoleFrontOffice, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsSuperuser reports whether the role bypasses route-level role gating.
func (r UserRole) IsSuperuser() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// AllRoles returns all predefined roles.
func AllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAccountManager,
		RolePropertyLawyer,
		RoleAuditor,
		RoleCompliance,
		RoleFrontOffice,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}
