package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/storemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rootName  = "rootuser"
	rootPass  = "R00t!Pass"
	adminName = "admin01"
	adminPass = "Adm1n!Pass"
	aliceName = "alice123"
	alicePass = "Str0ng!Pass"
	guestName = "guest01"
	guestPass = "Gu3st!Pass"
)

// Slots of the accounts created by withUsers.
const (
	rootSlot = iota
	adminSlot
	aliceSlot
	guestSlot
)

type fakeVerifier string

func (f fakeVerifier) Verify(code string) bool { return code == string(f) }

func newEngine(t *testing.T, opts ...Option) (*SecurityContext, *eeprom.Memory) {
	t.Helper()
	mem := eeprom.NewMemory()
	c, err := New(context.Background(), mem, opts...)
	require.NoError(t, err)
	return c, mem
}

func enroll(t *testing.T, c *SecurityContext, name, pass string, role models.Role) (models.UserInfo, error) {
	t.Helper()
	e, err := c.BeginEnrollment()
	require.NoError(t, err)
	require.NoError(t, e.SetUsername([]byte(name)))
	require.NoError(t, e.SetPassword([]byte(pass)))
	require.NoError(t, e.SetRole(role))
	return c.CreateUser(context.Background(), e)
}

// provisioned returns an engine holding only the root account.
func provisioned(t *testing.T, opts ...Option) (*SecurityContext, *eeprom.Memory) {
	t.Helper()
	c, mem := newEngine(t, opts...)
	info, err := enroll(t, c, rootName, rootPass, models.RoleSuper)
	require.NoError(t, err)
	require.Equal(t, uint8(rootSlot), info.Slot)
	return c, mem
}

// withUsers returns an engine with root, admin, alice (NORMAL) and a guest,
// nobody signed in.
func withUsers(t *testing.T, opts ...Option) (*SecurityContext, *eeprom.Memory) {
	t.Helper()
	c, mem := provisioned(t, opts...)
	signIn(t, c, rootName, rootPass)
	for _, u := range []struct {
		name, pass string
		role       models.Role
	}{
		{adminName, adminPass, models.RoleAdmin},
		{aliceName, alicePass, models.RoleNormal},
		{guestName, guestPass, models.RoleGuest},
	} {
		_, err := enroll(t, c, u.name, u.pass, u.role)
		require.NoError(t, err)
	}
	c.SignOut(context.Background())
	return c, mem
}

func signIn(t *testing.T, c *SecurityContext, name, pass string) {
	t.Helper()
	require.NoError(t, c.SignIn(context.Background(), []byte(name), []byte(pass)))
}

func failSignIn(c *SecurityContext, name, pass string) error {
	return c.SignIn(context.Background(), []byte(name), []byte(pass))
}

func assertIntact(t *testing.T, c *SecurityContext) {
	t.Helper()
	ok, err := c.Map().VerifyIntegrity()
	require.NoError(t, err)
	assert.True(t, ok, "checksum must hold")
}

func lastEvent(t *testing.T, c *SecurityContext) models.EventType {
	t.Helper()
	ev, err := c.GetLastEvent()
	require.NoError(t, err)
	return ev
}

func tries(t *testing.T, c *SecurityContext) uint8 {
	t.Helper()
	n, err := c.Tries()
	require.NoError(t, err)
	return n
}

func locked(t *testing.T, c *SecurityContext) bool {
	t.Helper()
	l, err := c.IsSystemLocked()
	require.NoError(t, err)
	return l
}

func primary(mem *eeprom.Memory) []byte {
	return mem.Bytes()[storemap.PrimaryAddr : int(storemap.PrimaryAddr)+storemap.PrimarySize]
}

// corrupt flips a byte inside alice's record, leaving the checksum stale.
func corrupt(t *testing.T, mem *eeprom.Memory) {
	t.Helper()
	addr := storemap.RecordAddr(aliceSlot) + 3
	b, err := mem.Get(addr)
	require.NoError(t, err)
	require.NoError(t, mem.Set(addr, b^0x20))
}

func lockSystem(t *testing.T, c *SecurityContext) {
	t.Helper()
	for i := uint8(0); i < c.MaxTries(); i++ {
		assert.ErrorIs(t, failSignIn(c, aliceName, "Wr0ng!Pass"), common.ErrInvalidPass)
	}
	require.True(t, locked(t, c))
}
