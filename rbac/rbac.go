// Package rbac resolves role memberships into permission sets. Roles
// live in named guards, independent role namespaces such as "admin"
// and "user", so an end-user role can never shadow an operator role.
package rbac

import (
	"errors"
	"sort"
)

// DefaultGuard is used when callers do not partition roles.
const DefaultGuard = "user"

// ErrUnknownGuard is an exported constant or variable used by the authentication engine.
var ErrUnknownGuard = errors.New("unknown guard")

// ErrUnknownRole is an exported constant or variable used by the authentication engine.
var ErrUnknownRole = errors.New("unknown role")

// Registry is an immutable role/permission lookup table, built once at
// engine construction and read concurrently afterwards.
type Registry struct {
	guards map[string]map[string]map[string]struct{}
}

// Builder accumulates role definitions before freezing them into a
// [Registry].
type Builder struct {
	guards map[string]map[string]map[string]struct{}
}

// NewBuilder describes the newbuilder operation and its observable behavior.
func NewBuilder() *Builder {
	return &Builder{guards: make(map[string]map[string]map[string]struct{})}
}

// Role registers (or extends) a role inside a guard.
func (b *Builder) Role(guard, role string, permissions ...string) *Builder {
	if guard == "" {
		guard = DefaultGuard
	}

	roles, ok := b.guards[guard]
	if !ok {
		roles = make(map[string]map[string]struct{})
		b.guards[guard] = roles
	}

	perms, ok := roles[role]
	if !ok {
		perms = make(map[string]struct{})
		roles[role] = perms
	}
	for _, p := range permissions {
		perms[p] = struct{}{}
	}
	return b
}

// Build freezes the accumulated definitions.
func (b *Builder) Build() *Registry {
	return &Registry{guards: b.guards}
}

// HasRole reports whether the role exists in the guard.
func (r *Registry) HasRole(guard, role string) bool {
	if guard == "" {
		guard = DefaultGuard
	}
	_, ok := r.guards[guard][role]
	return ok
}

// Permissions returns the union of permissions granted by the given
// roles within one guard, sorted for stable output. Unknown roles are
// skipped, not errors; membership data may outlive a role definition.
func (r *Registry) Permissions(guard string, roles []string) []string {
	if guard == "" {
		guard = DefaultGuard
	}

	set := make(map[string]struct{})
	for _, role := range roles {
		for p := range r.guards[guard][role] {
			set[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPermission reports whether any of the roles grants the permission
// within the guard.
func (r *Registry) HasPermission(guard string, roles []string, permission string) bool {
	if guard == "" {
		guard = DefaultGuard
	}

	for _, role := range roles {
		if _, ok := r.guards[guard][role][permission]; ok {
			return true
		}
	}
	return false
}

// Guards lists the registered guard names, sorted.
func (r *Registry) Guards() []string {
	out := make([]string, 0, len(r.guards))
	for g := range r.guards {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
