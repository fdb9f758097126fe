package models

import "strings"

// Permission is a capability bit.
type Permission uint16

const (
	PermRead Permission = 1 << iota
	PermChangeOwnCredentials
	PermDeleteSelf
	PermManageUsers
	PermSetRoles
	PermBackup
	PermRestore
	PermClearLog
	PermUnlock
	PermSystemReset
	PermFactoryReset
	PermSecurityLevel
	PermMaintenance
)

// Permissions is a capability set.
type Permissions uint16

// Has reports whether every bit of p is present.
func (s Permissions) Has(p Permission) bool {
	return uint16(s)&uint16(p) == uint16(p)
}

var rolePermissions = map[Role]Permissions{
	RoleGuest: Permissions(PermRead),
	RoleNormal: Permissions(PermRead |
		PermChangeOwnCredentials |
		PermDeleteSelf),
	RoleAdmin: Permissions(PermRead |
		PermChangeOwnCredentials |
		PermDeleteSelf |
		PermManageUsers |
		PermSetRoles |
		PermBackup |
		PermRestore |
		PermClearLog |
		PermUnlock),
	RoleSuper: Permissions(PermRead |
		PermChangeOwnCredentials |
		PermManageUsers |
		PermSetRoles |
		PermBackup |
		PermRestore |
		PermClearLog |
		PermUnlock |
		PermSystemReset |
		PermFactoryReset |
		PermSecurityLevel |
		PermMaintenance),
}

// PermissionsFor returns the fixed capability set of r. Unknown roles get
// no capabilities.
func PermissionsFor(r Role) Permissions {
	return rolePermissions[r]
}

var permNames = []struct {
	p    Permission
	name string
}{
	{PermRead, "read"},
	{PermChangeOwnCredentials, "change-own-credentials"},
	{PermDeleteSelf, "delete-self"},
	{PermManageUsers, "manage-users"},
	{PermSetRoles, "set-roles"},
	{PermBackup, "backup"},
	{PermRestore, "restore"},
	{PermClearLog, "clear-log"},
	{PermUnlock, "unlock"},
	{PermSystemReset, "system-reset"},
	{PermFactoryReset, "factory-reset"},
	{PermSecurityLevel, "security-level"},
	{PermMaintenance, "maintenance"},
}

func (s Permissions) String() string {
	var parts []string
	for _, pn := range permNames {
		if s.Has(pn.p) {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, ",")
}
