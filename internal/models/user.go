package models

// User is one occupied slot of the credential table.
type User struct {
	Slot     uint8
	Name     Username
	Password Password
	Role     Role
}

// UserInfo is the listing view of a user; it never carries the password.
type UserInfo struct {
	Slot uint8
	Name string
	Role Role
}

// Info strips the password.
func (u User) Info() UserInfo {
	return UserInfo{Slot: u.Slot, Name: u.Name.String(), Role: u.Role}
}
