package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// IsSystemLocked reports whether LOCKED is set.
func (c *SecurityContext) IsSystemLocked() (bool, error) {
	st, err := c.m.Status()
	if err != nil {
		return false, err
	}
	return st.Has(models.StatusLocked), nil
}

// Tries returns the consecutive failed attempt count.
func (c *SecurityContext) Tries() (uint8, error) {
	return c.m.Tries()
}

// ErrorTimeout records an input timeout outside the stepwise API. It counts
// as a failed attempt and is logged as LOGIN_FAIL.
func (c *SecurityContext) ErrorTimeout(ctx context.Context) error {
	locked, err := c.IsSystemLocked()
	if err != nil {
		return err
	}
	if locked {
		return common.ErrSystemLocked
	}
	slot := models.NoUser
	if c.pending != nil {
		slot = c.pending.Slot
	}
	return c.failAttempt(ctx, slot, common.ErrTimeout)
}

// SystemLock sets LOCKED and ends any session that could not act on a
// locked system.
func (c *SecurityContext) SystemLock(ctx context.Context) error {
	if err := c.m.SetFlag(models.StatusLocked); err != nil {
		return err
	}
	c.record(ctx, models.EventSystemLock, c.sessionSlot())
	c.log.Warn(ctx, "system locked")

	if c.session == nil || !c.session.Elevated {
		c.SignOut(ctx)
	}
	c.resetAttempt()
	c.state = StateLockedOut
	return nil
}

// SystemUnlock clears LOCKED and the attempt counter. It needs an elevated
// session, see ElevateWithRecoveryCode and ElevateWithAccount.
func (c *SecurityContext) SystemUnlock(ctx context.Context) error {
	if c.session == nil || !c.session.Elevated {
		return common.ErrNoPermission
	}
	s, err := c.authorize(models.PermUnlock)
	if err != nil {
		return err
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	err = c.m.Update(func(r *storemap.Region) error {
		r.ClearFlag(models.StatusLocked)
		r.SetTries(0)
		return nil
	})
	if err != nil {
		return err
	}
	c.record(ctx, models.EventSystemUnlock, s.Slot)
	c.log.Info(ctx, "system unlocked", "slot", s.Slot)
	c.state = StateAuthenticated
	return nil
}

// ElevateWithRecoveryCode opens a maintenance session with SUPER rights
// using the master recovery code. It works on a locked system and on a store
// whose integrity is lost. Rejected codes count against their own persisted
// throttle; once it reaches the attempt limit no code is checked.
func (c *SecurityContext) ElevateWithRecoveryCode(ctx context.Context, code string) error {
	c.SignOut(ctx)
	if c.recovery == nil {
		return common.ErrNoPermission
	}
	if err := c.elevationAllowed(ctx, storemap.RecoveryThrottleAddr); err != nil {
		return err
	}
	if !c.recovery.Verify(code) {
		return c.failElevation(ctx, storemap.RecoveryThrottleAddr, models.NoUser, common.ErrInvalidPass)
	}
	for _, addr := range []uint16{storemap.RecoveryThrottleAddr, storemap.AccountThrottleAddr} {
		if err := c.m.SetElevationFailures(addr, 0); err != nil {
			return err
		}
	}

	c.session = &Session{Slot: models.NoUser, Name: "recovery", Role: models.RoleSuper, Elevated: true}
	c.state = StateAuthenticated
	c.record(ctx, models.EventLoginSuccess, models.NoUser)
	c.log.Warn(ctx, "recovery session opened")
	return nil
}

// ElevateWithAccount opens a maintenance session for an ADMIN or SUPER
// account. The attempt counter is not touched, so a locked system stays
// reachable; failures count against a separate persisted throttle instead.
// Unknown and under-privileged accounts get ErrNoPermission whatever the
// password, so the call does not reveal whether a password is right.
func (c *SecurityContext) ElevateWithAccount(ctx context.Context, username, password []byte) error {
	c.SignOut(ctx)
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	if err := c.elevationAllowed(ctx, storemap.AccountThrottleAddr); err != nil {
		return err
	}

	u, err := c.users.FindByName(username)
	if err != nil {
		if common.CodeOf(err) != common.ErrInvalidUser {
			return err
		}
		return c.failElevation(ctx, storemap.AccountThrottleAddr, models.NoUser, common.ErrNoPermission)
	}
	if u.Role < models.RoleAdmin {
		return c.failElevation(ctx, storemap.AccountThrottleAddr, u.Slot, common.ErrNoPermission)
	}
	if !u.Password.Equal(password) {
		return c.failElevation(ctx, storemap.AccountThrottleAddr, u.Slot, common.ErrInvalidPass)
	}
	if err := c.m.SetElevationFailures(storemap.AccountThrottleAddr, 0); err != nil {
		return err
	}

	c.session = &Session{Slot: u.Slot, Name: u.Name.String(), Role: u.Role, Elevated: true}
	c.state = StateAuthenticated
	c.record(ctx, models.EventLoginSuccess, u.Slot)
	c.log.Info(ctx, "maintenance session opened", "slot", u.Slot, "role", u.Role.String())
	return nil
}

// ElevationFailures returns the failed elevation counts for the account and
// recovery code paths.
func (c *SecurityContext) ElevationFailures() (account, recovery uint8, err error) {
	if account, err = c.m.ElevationFailures(storemap.AccountThrottleAddr); err != nil {
		return 0, 0, err
	}
	if recovery, err = c.m.ElevationFailures(storemap.RecoveryThrottleAddr); err != nil {
		return 0, 0, err
	}
	return account, recovery, nil
}

// elevationAllowed refuses an elevation path whose throttle is exhausted.
func (c *SecurityContext) elevationAllowed(ctx context.Context, addr uint16) error {
	n, err := c.m.ElevationFailures(addr)
	if err != nil {
		return err
	}
	if n >= c.maxTries {
		c.log.Warn(ctx, "elevation refused, too many failures", "throttle", fmt.Sprintf("0x%03X", addr))
		return common.ErrSystemLocked
	}
	return nil
}

// failElevation counts a failed elevation on its throttle, logs it and
// returns result.
func (c *SecurityContext) failElevation(ctx context.Context, addr uint16, slot uint8, result error) error {
	n, err := c.m.ElevationFailures(addr)
	if err != nil {
		return err
	}
	if n < c.maxTries {
		n++
	}
	if err := c.m.SetElevationFailures(addr, n); err != nil {
		return err
	}
	c.record(ctx, models.EventLoginFail, slot)
	c.log.Warn(ctx, "elevation rejected", "slot", slot, "failures", n, "throttle", fmt.Sprintf("0x%03X", addr))
	return result
}

// ResetSystem restores defaults while keeping the root account, which moves
// to slot 0, and the backup region. Needs SUPER.
func (c *SecurityContext) ResetSystem(ctx context.Context) error {
	s, err := c.authorize(models.PermSystemReset)
	if err != nil {
		return err
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}

	root, err := c.users.Root()
	if err != nil && common.CodeOf(err) != common.ErrInvalidUser {
		return err
	}
	backupValid, err := c.m.BackupValid()
	if err != nil {
		return err
	}

	err = c.m.Update(func(r *storemap.Region) error {
		r.Zero()
		r.SetSecurityLevel(models.SecurityLow)
		st := models.StatusInitialized
		if backupValid {
			st |= models.StatusBackupValid
		}
		r.SetStatus(st)
		return nil
	})
	if err != nil {
		return err
	}

	if root != nil {
		kept, err := c.users.Create(*root)
		if err != nil {
			return err
		}
		if !s.Recovery() {
			s.Slot = kept.Slot
		}
	}
	c.record(ctx, models.EventSystemReset, c.sessionSlot())
	c.log.Warn(ctx, "system reset", "root_kept", root != nil, "backup_valid", backupValid)
	return nil
}

// SetMaintenance toggles the MAINTENANCE flag. Needs SUPER.
func (c *SecurityContext) SetMaintenance(ctx context.Context, on bool) error {
	if _, err := c.authorize(models.PermMaintenance); err != nil {
		return err
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	var err error
	if on {
		err = c.m.SetFlag(models.StatusMaintenance)
	} else {
		err = c.m.ClearFlag(models.StatusMaintenance)
	}
	if err != nil {
		return err
	}
	c.log.Info(ctx, "maintenance mode changed", "on", on)
	return nil
}

// SecurityLevel returns the active password policy level.
func (c *SecurityContext) SecurityLevel() (models.SecurityLevel, error) {
	return c.m.SecurityLevel()
}

// SetSecurityLevel changes the password policy level. Needs SUPER. Stored
// passwords are not re-checked; the new level applies to new passwords.
func (c *SecurityContext) SetSecurityLevel(ctx context.Context, level models.SecurityLevel) error {
	if _, err := c.authorize(models.PermSecurityLevel); err != nil {
		return err
	}
	if !level.Valid() {
		return common.ErrNoPermission
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}
	if err := c.m.SetSecurityLevel(level); err != nil {
		return err
	}
	c.log.Info(ctx, "security level changed", "level", level.String())
	return nil
}
