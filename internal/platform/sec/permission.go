// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

package sec

// # Fine-Grained Permissions
//
// Permissions are the second, orthogonal authorization gate. Route gating is
// role-based and coarse; destructive or sensitive ACTIONS are additionally
// gated by (domain, resource, action) grants carried in the session token.
// A user may hold a broad role with a narrow permission set, or vice versa.

// Permission is a single (domain, resource, action) grant.
type Permission struct {
	// Domain is the permission namespace (e.g. "marketplace", "treasury").
	Domain string `json:"d"`
	// Resource is the guarded entity, or [WildcardResource] for all of them.
	Resource string `json:"r"`
	// Action is one of the CRUD actions below.
	Action string `json:"a"`
}

// WildcardResource grants an action over every resource in a domain.
const WildcardResource = "all"

// Permission actions.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PermissionDomains enumerates every permission namespace on the platform.
var PermissionDomains = []string{
	"marketplace",
	"compliance",
	"treasury",
	"platform",
}

// allActions is the fixed CRUD action set.
var allActions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// HasPermission reports whether the grant set allows the requested action.
//
// A grant matches on an exact resource or on [WildcardResource].
func HasPermission(grants []Permission, domain, resource, action string) bool {
	for _, grant := range grants {
		if grant.Domain != domain || grant.Action != action {
			continue
		}
		if grant.Resource == resource || grant.Resource == WildcardResource {
			return true
		}
	}
	return false
}

// FullPermissionSet returns wildcard grants for every domain and action.
//
// This is the permission set minted for super_admin identities.
func FullPermissionSet() []Permission {
	grants := make([]Permission, 0, len(PermissionDomains)*len(allActions))
	for _, domain := range PermissionDomains {
		for _, action := range allActions {
			grants = append(grants, Permission{
				Domain:   domain,
				Resource: WildcardResource,
				Action:   action,
			})
		}
	}
	return grants
}
