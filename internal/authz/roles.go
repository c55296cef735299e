package authz

const (
	RoleUser  = 10
	RoleAdmin = 50
)

func IsAdmin(roleID int) bool {
	return roleID == RoleAdmin
}

func IsKnownRole(roleID int) bool {
	return roleID == RoleUser || roleID == RoleAdmin
}

func RoleName(roleID int) string {
	switch roleID {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	}
	return "unknown"
}
