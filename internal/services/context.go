// Package services implements the security state engine: sign-in and
// lockout, credential management, backup and recovery, and the event log.
//
// All operations hang off a SecurityContext, which owns the persistent map,
// the repositories over it and the volatile session. A SecurityContext is
// driven by one control loop and is not safe for concurrent use; the only
// exception is SignalTimeout.
package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/recovery"
	"github.com/dmitrijs2005/safekeeper/internal/repositories/events"
	"github.com/dmitrijs2005/safekeeper/internal/repositories/users"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
)

// DefaultMaxTries is the number of consecutive failed sign-ins that locks
// the system.
const DefaultMaxTries uint8 = 3

// Session is the signed-in identity.
type Session struct {
	Slot uint8
	Name string
	Role models.Role
	// Elevated marks a maintenance session opened through an administrative
	// path. Only elevated sessions may act on a locked system.
	Elevated bool
}

// Recovery reports whether the session was opened with the master recovery
// code and is not bound to a user slot.
func (s Session) Recovery() bool { return s.Slot == models.NoUser }

// SecurityContext carries every piece of engine state.
type SecurityContext struct {
	m        *storemap.Map
	users    users.Repository
	events   events.Repository
	log      logging.Logger
	recovery recovery.Verifier
	maxTries uint8

	state   AuthState
	session *Session

	// sign-in in progress
	pendingName []byte
	pending     *models.User

	draft *Enrollment

	timedOut atomic.Bool
}

// Option configures a SecurityContext.
type Option func(*SecurityContext)

func WithLogger(l logging.Logger) Option {
	return func(c *SecurityContext) { c.log = l }
}

// WithMaxTries sets the lockout threshold. Zero keeps the default.
func WithMaxTries(n uint8) Option {
	return func(c *SecurityContext) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithRecovery installs the verifier for the master recovery code. Without
// one, recovery elevation is refused.
func WithRecovery(v recovery.Verifier) Option {
	return func(c *SecurityContext) { c.recovery = v }
}

// New opens the engine over store, formatting it if it does not hold an
// initialized map yet.
func New(ctx context.Context, store eeprom.Store, opts ...Option) (*SecurityContext, error) {
	if store.Size() < eeprom.Size {
		return nil, fmt.Errorf("store is %d bytes, need %d", store.Size(), eeprom.Size)
	}
	m := storemap.New(store)
	c := &SecurityContext{
		m:        m,
		users:    users.NewEEPROMRepository(m),
		events:   events.NewEEPROMRepository(store),
		log:      logging.Discard(),
		maxTries: DefaultMaxTries,
	}
	for _, o := range opts {
		o(c)
	}

	formatted, err := m.Initialize()
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	if formatted {
		c.log.Info(ctx, "store formatted")
	}
	return c, nil
}

// Map exposes the underlying memory map.
func (c *SecurityContext) Map() *storemap.Map { return c.m }

// MaxTries returns the lockout threshold.
func (c *SecurityContext) MaxTries() uint8 { return c.maxTries }

// State returns the authentication state.
func (c *SecurityContext) State() AuthState { return c.state }

// Session returns a copy of the active session.
func (c *SecurityContext) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// CurrentUser describes the signed-in user.
func (c *SecurityContext) CurrentUser() (models.UserInfo, bool) {
	if c.session == nil {
		return models.UserInfo{}, false
	}
	return models.UserInfo{Slot: c.session.Slot, Name: c.session.Name, Role: c.session.Role}, true
}

// lockExempt lists what an elevated session may still do on a locked system.
var lockExempt = map[models.Permission]bool{
	models.PermRead:         true,
	models.PermUnlock:       true,
	models.PermRestore:      true,
	models.PermSystemReset:  true,
	models.PermFactoryReset: true,
}

// authorize checks the lock, then the session's role against p.
func (c *SecurityContext) authorize(p models.Permission) (*Session, error) {
	locked, err := c.IsSystemLocked()
	if err != nil {
		return nil, err
	}
	if locked && (c.session == nil || !c.session.Elevated || !lockExempt[p]) {
		return nil, common.ErrSystemLocked
	}
	if c.session == nil || !models.PermissionsFor(c.session.Role).Has(p) {
		return nil, common.ErrNoPermission
	}
	return c.session, nil
}

// ensureIntegrity verifies the primary region and falls back to the backup
// when it does not hold. A restore can rewrite the user table, so a bound
// session is checked again afterwards.
func (c *SecurityContext) ensureIntegrity(ctx context.Context) error {
	ok, err := c.m.VerifyIntegrity()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	c.log.Warn(ctx, "integrity check failed, restoring backup")
	if err := c.restore(ctx); err != nil {
		c.log.Error(ctx, "no usable backup", "error", err)
		return err
	}
	return c.revalidateSession(ctx)
}

func (c *SecurityContext) revalidateSession(ctx context.Context) error {
	s := c.session
	if s == nil || s.Recovery() {
		return nil
	}
	u, err := c.users.Get(int(s.Slot))
	if err == nil && u.Name.String() == s.Name && u.Role == s.Role {
		return nil
	}
	c.log.Warn(ctx, "session no longer matches restored user table", "slot", s.Slot)
	c.SignOut(ctx)
	return common.ErrNoPermission
}

// record appends an event. The audit trail never changes the outcome of the
// operation that produced it, so failures are only logged.
func (c *SecurityContext) record(ctx context.Context, t models.EventType, userIndex uint8) {
	ev, err := c.events.Append(t, userIndex)
	if err != nil {
		c.log.Error(ctx, "event log append failed", "event", t.String(), "error", err)
		return
	}
	c.log.Debug(ctx, "event recorded", "event", t.String(), "user", userIndex, "seq", ev.Sequence)
}

func (c *SecurityContext) sessionSlot() uint8 {
	if c.session == nil {
		return models.NoUser
	}
	return c.session.Slot
}
