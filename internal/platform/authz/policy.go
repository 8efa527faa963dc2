// Copyright (c) 2026 PropVault. All rights reserved.
// Author: platform@propvault.io

/*
Package authz holds the single source of truth for route authorization.

It implements the route policy table (path prefix -> allowed roles) consulted
by BOTH enforcement points: the boundary interceptor middleware and the
handler-level view guard. Keeping one pure [Policy] shared by both callers
prevents the two from drifting apart.

# Invariants

  - The table is immutable after construction; build it once at startup.
  - admin and super_admin are implicitly allowed on every guarded prefix.
  - Paths that match no prefix are public, including for anonymous callers.
*/
package authz

import (
	"sort"
	"strings"

	"github.com/propvault/propvault/internal/platform/sec"
)

// Rule maps a route path prefix to the set of roles allowed under it.
type Rule struct {
	// Prefix is the guarded path prefix (e.g. "/admin/compliance").
	Prefix string
	// Roles are the explicitly allowed roles. Superusers are always
	// implied and never need to be listed.
	Roles []sec.UserRole
}

// Policy is the immutable route policy table.
//
// # Concurrency
//
// Policy is read-only after [New] and safe for unsynchronized concurrent use
// from every request goroutine.
type Policy struct {
	// rules are sorted by descending prefix length so the most specific
	// prefix wins (e.g. "/admin/compliance" before "/admin").
	rules []Rule

	// public holds literal paths that bypass the guard even when they sit
	// under a guarded prefix (the login pages).
	public map[string]struct{}
}

// New builds an immutable [Policy] from the given rules and public literals.
func New(rules []Rule, publicPaths []string) *Policy {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	public := make(map[string]struct{}, len(publicPaths))
	for _, path := range publicPaths {
		public[path] = struct{}{}
	}

	return &Policy{rules: sorted, public: public}
}

// Default returns the production route policy table.
//
// The staff console lives under /admin with per-department sub-prefixes; the
// operator console lives under /super-admin. Everything else (listings,
// auth endpoints) is unguarded here and relies on handler-level checks.
func Default() *Policy {
	return New(
		[]Rule{
			{Prefix: "/admin/compliance", Roles: []sec.UserRole{sec.RoleCompliance}},
			{Prefix: "/admin/legal", Roles: []sec.UserRole{sec.RolePropertyLawyer}},
			{Prefix: "/admin/audit", Roles: []sec.UserRole{sec.RoleAuditor}},
			{Prefix: "/admin", Roles: []sec.UserRole{sec.RoleFrontOffice, sec.RoleAccountManager}},
			// Empty role list: only the implicit superusers may enter.
			{Prefix: "/super-admin", Roles: nil},
		},
		[]string{
			"/admin/login",
			"/super-admin/login",
		},
	)
}

// IsPublicPath reports whether the path is an explicit public literal that
// the boundary interceptor must pass through untouched.
func (p *Policy) IsPublicPath(path string) bool {
	_, ok := p.public[path]
	return ok
}

// Match returns the most specific rule guarding the path, or nil when the
// path is unguarded.
func (p *Policy) Match(path string) *Rule {
	if p.IsPublicPath(path) {
		return nil
	}
	for i := range p.rules {
		if strings.HasPrefix(path, p.rules[i].Prefix) {
			return &p.rules[i]
		}
	}
	return nil
}

// IsAllowed reports whether the role may access the path.
//
// Unguarded paths are allowed for every role. Guarded paths allow the listed
// roles plus the implicit superusers (admin, super_admin).
func (p *Policy) IsAllowed(path string, role sec.UserRole) bool {
	rule := p.Match(path)
	if rule == nil {
		return true
	}

	if role.IsSuperuser() {
		return true
	}

	for _, allowed := range rule.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}
