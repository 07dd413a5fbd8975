package auth

// Role grades what a caller may do. Viewers read rules, alerts and series,
// operators additionally manage alerting rules and admins manage tenants and
// devices on top of that.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// ParseRole resolves a claim value to a known role.
func ParseRole(value string) (Role, bool) {
	role := Role(value)
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether the role satisfies the requirement. Unknown roles
// allow nothing.
func (r Role) Allows(required Role) bool {
	return roleRanks[r] >= roleRanks[required]
}
