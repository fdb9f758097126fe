package models

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/safekeeper/internal/common"
)

const (
	UsernameMinLength = 5
	UsernameMaxLength = 20
	PasswordMinLength = 8
	PasswordMaxLength = 20
)

// Username is a length-checked account name. The zero value is empty and is
// never produced by NewUsername.
type Username struct {
	b [UsernameMaxLength]byte
	n uint8
}

// NewUsername validates the length bounds and copies name.
func NewUsername(name []byte) (Username, error) {
	var u Username
	if len(name) < UsernameMinLength || len(name) > UsernameMaxLength {
		return u, common.ErrInvalidUser
	}
	u.n = uint8(copy(u.b[:], name))
	return u, nil
}

// Len returns the name length.
func (u Username) Len() int { return int(u.n) }

// Bytes returns a copy of the name.
func (u Username) Bytes() []byte {
	return append([]byte(nil), u.b[:u.n]...)
}

func (u Username) String() string { return string(u.b[:u.n]) }

// Matches is the exact, case-sensitive comparison used by username lookups.
func (u Username) Matches(name []byte) bool {
	return int(u.n) == len(name) && string(u.b[:u.n]) == string(name)
}

// Password is a password that satisfied the complexity policy when it was
// constructed. Passwords are stored in the clear on the device.
type Password struct {
	b [PasswordMaxLength]byte
	n uint8
}

// NewPassword validates pw against the policy of level and copies it.
func NewPassword(pw []byte, level SecurityLevel) (Password, error) {
	var p Password
	if !IsPasswordValid(pw, level) {
		return p, common.ErrInvalidPass
	}
	p.n = uint8(copy(p.b[:], pw))
	return p, nil
}

// Len returns the password length.
func (p Password) Len() int { return int(p.n) }

// Bytes returns a copy of the password.
func (p Password) Bytes() []byte {
	return append([]byte(nil), p.b[:p.n]...)
}

// Equal compares length first and then every byte in constant time.
// There is no partial match.
func (p Password) Equal(candidate []byte) bool {
	if int(p.n) != len(candidate) {
		return false
	}
	return subtle.ConstantTimeCompare(p.b[:p.n], candidate) == 1
}

// Wipe zeroes the stored bytes.
func (p *Password) Wipe() {
	for i := range p.b {
		p.b[i] = 0
	}
	p.n = 0
}

// IsPasswordValid reports whether pw is within the length bounds of level
// and contains an upper-case letter, a lower-case letter, a digit and a
// special character. Bytes outside printable ASCII count toward no class.
func IsPasswordValid(pw []byte, level SecurityLevel) bool {
	if len(pw) < level.MinPasswordLength() || len(pw) > PasswordMaxLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, c := range pw {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		case c >= '!' && c <= '~':
			special = true
		}
	}
	return upper && lower && digit && special
}

// StoredPassword rebuilds a Password read back from the store. Only the
// length bounds are checked: the complexity policy applied when the password
// was set, and a later security level change does not invalidate it.
func StoredPassword(pw []byte) (Password, error) {
	var p Password
	if len(pw) < PasswordMinLength || len(pw) > PasswordMaxLength {
		return p, common.ErrInvalidPass
	}
	p.n = uint8(copy(p.b[:], pw))
	return p, nil
}
