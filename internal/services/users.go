package services

import (
	"context"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
)

// Enrollment stages a new account. Values are validated when set and only
// reach the store through CreateUser.
type Enrollment struct {
	level models.SecurityLevel

	name    models.Username
	pass    models.Password
	role    models.Role
	hasName bool
	hasPass bool
}

// BeginEnrollment starts a draft validated against the active security
// level. The context keeps the draft until CreateUser or SignOut.
func (c *SecurityContext) BeginEnrollment() (*Enrollment, error) {
	lvl, err := c.m.SecurityLevel()
	if err != nil {
		return nil, err
	}
	if c.draft != nil {
		c.draft.Wipe()
	}
	c.draft = &Enrollment{level: lvl, role: models.RoleGuest}
	return c.draft, nil
}

func (e *Enrollment) SetUsername(name []byte) error {
	u, err := models.NewUsername(name)
	if err != nil {
		return err
	}
	e.name, e.hasName = u, true
	return nil
}

func (e *Enrollment) SetPassword(pw []byte) error {
	p, err := models.NewPassword(pw, e.level)
	if err != nil {
		return err
	}
	e.pass.Wipe()
	e.pass, e.hasPass = p, true
	return nil
}

func (e *Enrollment) SetRole(r models.Role) error {
	if !r.Valid() {
		return common.ErrNoPermission
	}
	e.role = r
	return nil
}

// Wipe clears the staged password.
func (e *Enrollment) Wipe() {
	e.pass.Wipe()
	e.hasPass = false
}

// CreateUser commits a draft. On a device without a root account the new
// account becomes SUPER and no session is needed. Otherwise the caller must
// manage users and outrank the requested role.
func (c *SecurityContext) CreateUser(ctx context.Context, e *Enrollment) (models.UserInfo, error) {
	provisioned, err := c.m.AdminFlag()
	if err != nil {
		return models.UserInfo{}, err
	}
	role := e.role
	if provisioned {
		s, err := c.authorize(models.PermManageUsers)
		if err != nil {
			return models.UserInfo{}, err
		}
		if !s.Role.Outranks(role) {
			return models.UserInfo{}, common.ErrNoPermission
		}
	} else {
		locked, err := c.IsSystemLocked()
		if err != nil {
			return models.UserInfo{}, err
		}
		if locked {
			return models.UserInfo{}, common.ErrSystemLocked
		}
		role = models.RoleSuper
	}

	if !e.hasName {
		return models.UserInfo{}, common.ErrInvalidUser
	}
	if !e.hasPass || !c.IsPasswordValid(e.pass.Bytes()) {
		return models.UserInfo{}, common.ErrInvalidPass
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return models.UserInfo{}, err
	}

	u, err := c.users.Create(models.User{Name: e.name, Password: e.pass, Role: role})
	if err != nil {
		return models.UserInfo{}, err
	}
	e.Wipe()
	if c.draft == e {
		c.draft = nil
	}

	c.record(ctx, models.EventUserCreate, u.Slot)
	c.log.Info(ctx, "user created", "slot", u.Slot, "role", u.Role.String(), "provisioning", !provisioned)
	return u.Info(), nil
}

// self returns the signed-in user's record after the usual checks.
func (c *SecurityContext) self(ctx context.Context, p models.Permission) (*Session, *models.User, error) {
	s, err := c.authorize(p)
	if err != nil {
		return nil, nil, err
	}
	if s.Recovery() {
		return nil, nil, common.ErrNoPermission
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return nil, nil, err
	}
	u, err := c.users.Get(int(s.Slot))
	if err != nil {
		return nil, nil, err
	}
	return s, u, nil
}

// ChangeUsername renames the signed-in account.
func (c *SecurityContext) ChangeUsername(ctx context.Context, name []byte) error {
	s, u, err := c.self(ctx, models.PermChangeOwnCredentials)
	if err != nil {
		return err
	}
	n, err := models.NewUsername(name)
	if err != nil {
		return err
	}
	other, err := c.users.FindByName(name)
	switch {
	case err == nil && other.Slot != u.Slot:
		return common.ErrUserExists
	case err != nil && common.CodeOf(err) != common.ErrInvalidUser:
		return err
	}

	u.Name = n
	if err := c.users.Update(*u); err != nil {
		return err
	}
	s.Name = n.String()
	c.record(ctx, models.EventUserChange, u.Slot)
	c.log.Info(ctx, "username changed", "slot", u.Slot)
	return nil
}

// ChangePassword replaces the signed-in account's password.
func (c *SecurityContext) ChangePassword(ctx context.Context, pw []byte) error {
	_, u, err := c.self(ctx, models.PermChangeOwnCredentials)
	if err != nil {
		return err
	}
	lvl, err := c.m.SecurityLevel()
	if err != nil {
		return err
	}
	p, err := models.NewPassword(pw, lvl)
	if err != nil {
		return err
	}

	u.Password.Wipe()
	u.Password = p
	if err := c.users.Update(*u); err != nil {
		return err
	}
	u.Password.Wipe()
	c.record(ctx, models.EventPassChange, u.Slot)
	c.log.Info(ctx, "password changed", "slot", u.Slot)
	return nil
}

// DeleteSelf removes the signed-in account and signs out. The root account
// and guests cannot delete themselves.
func (c *SecurityContext) DeleteSelf(ctx context.Context) error {
	_, u, err := c.self(ctx, models.PermDeleteSelf)
	if err != nil {
		return err
	}
	if err := c.users.Delete(int(u.Slot)); err != nil {
		return err
	}
	c.record(ctx, models.EventUserDelete, u.Slot)
	c.log.Info(ctx, "user deleted own account", "slot", u.Slot)
	c.SignOut(ctx)
	return nil
}

// DeleteUserByAdmin removes the account at index. The caller must outrank
// the target.
func (c *SecurityContext) DeleteUserByAdmin(ctx context.Context, index int) error {
	s, err := c.authorize(models.PermManageUsers)
	if err != nil {
		return err
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	target, err := c.users.Get(index)
	if err != nil {
		return err
	}
	if !s.Role.Outranks(target.Role) {
		return common.ErrNoPermission
	}

	if err := c.users.Delete(index); err != nil {
		return err
	}
	if !s.Recovery() && int(s.Slot) > index {
		s.Slot--
	}
	c.record(ctx, models.EventUserDelete, uint8(index))
	c.log.Info(ctx, "user deleted", "slot", index, "by", s.Slot)
	return nil
}

// GetUserType returns the role of the account at index.
func (c *SecurityContext) GetUserType(index int) (models.Role, error) {
	u, err := c.users.Get(index)
	if err != nil {
		return 0, err
	}
	return u.Role, nil
}

// SetUserType changes the role of the account at index. The caller must
// outrank both the target's current role and the new one.
func (c *SecurityContext) SetUserType(ctx context.Context, index int, role models.Role) error {
	s, err := c.authorize(models.PermSetRoles)
	if err != nil {
		return err
	}
	if !role.Valid() {
		return common.ErrNoPermission
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	target, err := c.users.Get(index)
	if err != nil {
		return err
	}
	if !s.Role.Outranks(target.Role) || !s.Role.Outranks(role) {
		return common.ErrNoPermission
	}

	target.Role = role
	if err := c.users.Update(*target); err != nil {
		return err
	}
	c.record(ctx, models.EventUserChange, uint8(index))
	c.log.Info(ctx, "role changed", "slot", index, "role", role.String())
	return nil
}

// IsUsernameExists reports whether an account with exactly this name exists.
func (c *SecurityContext) IsUsernameExists(name []byte) (bool, error) {
	return c.users.Exists(name)
}

// GetUserPermissions returns the capability set of the account at index.
func (c *SecurityContext) GetUserPermissions(index int) (models.Permissions, error) {
	role, err := c.GetUserType(index)
	if err != nil {
		return 0, err
	}
	return models.PermissionsFor(role), nil
}

// ListUsers returns every account in slot order.
func (c *SecurityContext) ListUsers() ([]models.UserInfo, error) {
	all, err := c.users.List()
	if err != nil {
		return nil, err
	}
	out := make([]models.UserInfo, 0, len(all))
	for _, u := range all {
		out = append(out, u.Info())
	}
	return out, nil
}
