package rbac

import (
	"context"
	"strings"
)

// Checker resolves role → permission grants. Patterns may end in "*", and a
// "<scope>-all" grant also covers "<scope>-own".
type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	switch {
	case pattern == "*" || pattern == perm:
		return true
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	case strings.HasSuffix(pattern, "-all") && strings.HasSuffix(perm, "-own"):
		return strings.TrimSuffix(pattern, "-all") == strings.TrimSuffix(perm, "-own")
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(roleKey{}).(string)
	return s
}
