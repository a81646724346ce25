package rbac

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		"progress:view-own",
		"progress:update-own",
		"quiz:submit",
		"events:view-own",
	},
	"teacher": {
		"progress:view-own",
		"progress:update-own",
		"progress:view-all",
		"quiz:submit",
		"events:view-own",
		"events:view-all",
	},
	"admin": {
		"*",
	},
}
