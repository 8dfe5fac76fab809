package rbac

// DefaultRoles returns the roles seeded into a fresh installation.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        "Admin",
			Description: "Full administrative access",
			Permissions: []Permission{
				{Name: "users.read"},
				{Name: "users.write"},
				{Name: "clients.read"},
				{Name: "clients.write"},
				{Name: "audit.read"},
			},
		},
		{
			Name:        "User",
			Description: "Standard authenticated user",
			Permissions: []Permission{
				{Name: "profile.read"},
				{Name: "profile.write"},
			},
		},
	}
}
