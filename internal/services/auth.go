package services

import (
	"context"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/shared"
)

// AuthState is the sign-in state machine position.
type AuthState uint8

const (
	StateIdle AuthState = iota
	StateAwaitingUsername
	StateAwaitingPassword
	StateAuthenticated
	StateLockedOut
)

func (s AuthState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingUsername:
		return "AWAITING_USERNAME"
	case StateAwaitingPassword:
		return "AWAITING_PASSWORD"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateLockedOut:
		return "LOCKED_OUT"
	default:
		return "UNKNOWN"
	}
}

// SignalTimeout reports an input timeout. It may be called from any
// goroutine; the flag is consumed at the next suspension point of the
// sign-in in progress.
func (c *SecurityContext) SignalTimeout() {
	c.timedOut.Store(true)
}

func (c *SecurityContext) interrupted(ctx context.Context) bool {
	return c.timedOut.Swap(false) || ctx.Err() != nil
}

// BeginSignIn ends any active session and starts collecting credentials.
func (c *SecurityContext) BeginSignIn(ctx context.Context) error {
	c.SignOut(ctx)

	locked, err := c.IsSystemLocked()
	if err != nil {
		return err
	}
	if locked {
		c.state = StateLockedOut
		return common.ErrSystemLocked
	}
	c.timedOut.Store(false)
	c.state = StateAwaitingUsername
	return nil
}

// SubmitUsername stages the username. Whether the name exists is revealed
// only by SubmitPassword.
func (c *SecurityContext) SubmitUsername(ctx context.Context, name []byte) error {
	if c.state != StateAwaitingUsername {
		return common.ErrNoPermission
	}
	if c.interrupted(ctx) {
		return c.failAttempt(ctx, models.NoUser, common.ErrTimeout)
	}
	if err := c.ensureIntegrity(ctx); err != nil {
		c.resetAttempt()
		return err
	}

	c.pendingName = append(c.pendingName[:0], name...)
	u, err := c.users.FindByName(name)
	switch {
	case err == nil:
		c.pending = u
	case common.CodeOf(err) == common.ErrInvalidUser:
		c.pending = nil
	default:
		c.resetAttempt()
		return err
	}
	c.state = StateAwaitingPassword
	c.log.Debug(ctx, "username accepted")
	return nil
}

// VerifyPassword compares candidate with the stored password of the staged
// username.
func (c *SecurityContext) VerifyPassword(candidate []byte) bool {
	if c.pending == nil {
		return false
	}
	return c.pending.Password.Equal(candidate)
}

// SubmitPassword completes the attempt started by SubmitUsername.
func (c *SecurityContext) SubmitPassword(ctx context.Context, password []byte) error {
	if c.state != StateAwaitingPassword {
		return common.ErrNoPermission
	}
	slot := models.NoUser
	if c.pending != nil {
		slot = c.pending.Slot
	}
	if c.interrupted(ctx) {
		return c.failAttempt(ctx, slot, common.ErrTimeout)
	}

	locked, err := c.IsSystemLocked()
	if err != nil {
		c.resetAttempt()
		return err
	}
	if locked {
		c.resetAttempt()
		c.state = StateLockedOut
		return common.ErrSystemLocked
	}

	if c.pending == nil {
		return c.failAttempt(ctx, slot, common.ErrInvalidUser)
	}
	if !c.VerifyPassword(password) {
		return c.failAttempt(ctx, slot, common.ErrInvalidPass)
	}

	u := c.pending
	st, err := c.m.Status()
	if err != nil {
		c.resetAttempt()
		return err
	}
	if st.Has(models.StatusMaintenance) && u.Role < models.RoleAdmin {
		c.resetAttempt()
		c.log.Info(ctx, "sign-in refused during maintenance", "slot", u.Slot)
		return common.ErrNoPermission
	}

	tries, err := c.m.Tries()
	if err != nil {
		c.resetAttempt()
		return err
	}
	if tries != 0 {
		if err := c.m.SetTries(0); err != nil {
			c.resetAttempt()
			return err
		}
	}

	c.session = &Session{Slot: u.Slot, Name: u.Name.String(), Role: u.Role}
	c.resetAttempt()
	c.state = StateAuthenticated
	c.record(ctx, models.EventLoginSuccess, u.Slot)
	c.log.Info(ctx, "signed in", "slot", u.Slot, "role", u.Role.String())
	return nil
}

// SignIn runs a whole attempt in one call.
func (c *SecurityContext) SignIn(ctx context.Context, username, password []byte) error {
	if err := c.BeginSignIn(ctx); err != nil {
		return err
	}
	if err := c.SubmitUsername(ctx, username); err != nil {
		return err
	}
	return c.SubmitPassword(ctx, password)
}

// SignOut clears the session and any staged input. It always succeeds.
func (c *SecurityContext) SignOut(ctx context.Context) {
	if c.session != nil {
		c.log.Debug(ctx, "signed out", "slot", c.session.Slot)
	}
	c.session = nil
	c.resetAttempt()
	if c.draft != nil {
		c.draft.Wipe()
		c.draft = nil
	}
	if c.state != StateLockedOut {
		c.state = StateIdle
	}
}

// IsPasswordValid checks pw against the policy of the active security level.
func (c *SecurityContext) IsPasswordValid(pw []byte) bool {
	lvl, err := c.m.SecurityLevel()
	if err != nil || !lvl.Valid() {
		lvl = models.SecurityHigh
	}
	return models.IsPasswordValid(pw, lvl)
}

func (c *SecurityContext) resetAttempt() {
	shared.WipeByteArray(c.pendingName)
	c.pendingName = c.pendingName[:0]
	if c.pending != nil {
		c.pending.Password.Wipe()
		c.pending = nil
	}
	if c.state == StateAwaitingUsername || c.state == StateAwaitingPassword {
		c.state = StateIdle
	}
}

// failAttempt counts a failed attempt, logs it and locks the system when the
// counter reaches the limit. The attempt's own result is returned unchanged.
func (c *SecurityContext) failAttempt(ctx context.Context, slot uint8, result error) error {
	c.resetAttempt()
	if err := c.ensureIntegrity(ctx); err != nil {
		return err
	}

	tries, err := c.m.Tries()
	if err != nil {
		return err
	}
	if tries < c.maxTries {
		tries++
	}
	if err := c.m.SetTries(tries); err != nil {
		return err
	}
	c.record(ctx, models.EventLoginFail, slot)
	c.log.Warn(ctx, "sign-in failed", "reason", result.Error(), "tries", tries, "max", c.maxTries)

	if tries >= c.maxTries {
		if err := c.SystemLock(ctx); err != nil {
			return err
		}
	}
	return result
}
