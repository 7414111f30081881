package domain

// Permission represents granular permission (resource:action pattern) / Permission granulaire (pattern resource:action)
type Permission string

// Predefined permissions / Permissions prédéfinies
const (
	PermissionUsersRead       Permission = "users:read"
	PermissionUsersWrite      Permission = "users:write"
	PermissionUsersDelete     Permission = "users:delete"
	PermissionUsersList       Permission = "users:list"
	PermissionRolesRead       Permission = "roles:read"
	PermissionRolesWrite      Permission = "roles:write"
	PermissionStatsRead       Permission = "stats:read"
	PermissionSystemAdmin     Permission = "system:admin"
	PermissionReferenceWrite  Permission = "reference:write"
	PermissionReferenceDelete Permission = "reference:delete"
	PermissionReviewsModerate Permission = "reviews:moderate"
)

// AllPermissions returns all defined permissions / Retourne toutes les permissions définies
func AllPermissions() []Permission {
	return []Permission{
		PermissionUsersRead,
		PermissionUsersWrite,
		PermissionUsersDelete,
		PermissionUsersList,
		PermissionRolesRead,
		PermissionRolesWrite,
		PermissionStatsRead,
		PermissionSystemAdmin,
		PermissionReferenceWrite,
		PermissionReferenceDelete,
		PermissionReviewsModerate,
	}
}

// String returns permission as string / Retourne la permission en string
func (p Permission) String() string {
	return string(p)
}

// DefaultPermissionsForRole returns default permissions for role / Retourne les permissions par défaut du rôle
func DefaultPermissionsForRole(role UserRole) []Permission {
	switch role {
	case RoleUser:
		return []Permission{}

	case RoleModerator:
		// Moderators curate the catalog but cannot delete it / Les modérateurs éditent le catalogue sans le supprimer
		return []Permission{
			PermissionUsersRead,
			PermissionUsersList,
			PermissionStatsRead,
			PermissionReferenceWrite,
			PermissionReviewsModerate,
		}

	case RoleAdmin:
		return AllPermissions()

	default:
		return []Permission{}
	}
}
