package rbac

// Default policy for the grading platform. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"lab:view",
		"lab:submit",
		"quiz:view",
		"quiz:submit",
		"exam:view",
		"exam:submit",
		"dashboard:view-own",
		"notes:view",
		"user:change_password",
	},
	"staff": {
		"lab:view",
		"quiz:view",
		"exam:view",
		"notes:view",
		"dashboard:view-all",
		"content:sync",
		"scores:export",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
