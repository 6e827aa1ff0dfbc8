package models

// Role decides which console a session sees. RoleNone until a credential lookup succeeds.
type Role string

const (
	RoleNone       Role = ""
	RoleManager    Role = "manager"
	RoleHosteller  Role = "hosteller"
	RoleDayScholar Role = "dayscholar"
)

func ValidRole(r Role) bool {
	return r == RoleManager || r == RoleHosteller || r == RoleDayScholar
}

// IsStudent reports whether r routes to the student console.
func (r Role) IsStudent() bool {
	return r == RoleHosteller || r == RoleDayScholar
}

func (r Role) Label() string {
	switch r {
	case RoleManager:
		return "Manager"
	case RoleHosteller:
		return "Hosteller"
	case RoleDayScholar:
		return "Day Scholar"
	}
	return "Guest"
}

// Identity is what the identity provider hands back after sign-in.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Anonymous   bool   `json:"anonymous"`
}

// Credential maps a (name, roll) pair to a role.
type Credential struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Roll string `json:"roll"`
	Role Role   `json:"role"`
}

type Employee struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Shift string `json:"shift"`
}
