package vessel

import "strings"

// Role is a caller's access role.
type Role string

const (
	RoleOperator Role = "operator"
	RoleAnalyst  Role = "analyst"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes a role name. Unknown names report ok=false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleOperator, RoleAnalyst, RoleAdmin:
		return r, true
	}
	return "", false
}

// RoleContext identifies who a snapshot is computed for. It is comparable
// so it can key per-tick snapshot groups.
type RoleContext struct {
	Role   Role   `json:"role"`
	UserID string `json:"userId"`
}

// Assignment links an operator to a vessel.
type Assignment struct {
	UserID   string `json:"userId"`
	VesselID int64  `json:"vesselId"`
	IsActive bool   `json:"isActive"`
}
