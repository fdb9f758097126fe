package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemUnlock_NeedsElevatedSession(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.SystemUnlock(ctx), common.ErrNoPermission)

	signIn(t, c, rootName, rootPass)
	assert.ErrorIs(t, c.SystemUnlock(ctx), common.ErrNoPermission, "a plain session is not an administrative path")

	lockSystem(t, c)
	assert.ErrorIs(t, c.SystemUnlock(ctx), common.ErrNoPermission)
	assert.True(t, locked(t, c))
}

func TestElevateWithRecoveryCode_UnlocksSystem(t *testing.T) {
	c, _ := withUsers(t, WithRecovery(fakeVerifier("424242")))
	ctx := context.Background()
	lockSystem(t, c)

	assert.ErrorIs(t, c.ElevateWithRecoveryCode(ctx, "000000"), common.ErrInvalidPass)
	assert.Equal(t, models.EventLoginFail, lastEvent(t, c))
	assert.Equal(t, c.MaxTries(), tries(t, c), "recovery attempts do not touch the counter")

	require.NoError(t, c.ElevateWithRecoveryCode(ctx, "424242"))
	s, ok := c.Session()
	require.True(t, ok)
	assert.True(t, s.Recovery())
	assert.True(t, s.Elevated)
	assert.Equal(t, models.RoleSuper, s.Role)

	require.NoError(t, c.SystemUnlock(ctx))
	assert.False(t, locked(t, c))
	assert.Zero(t, tries(t, c))
	assert.Equal(t, models.EventSystemUnlock, lastEvent(t, c))
	assertIntact(t, c)

	signIn(t, c, aliceName, alicePass)
}

func TestElevateWithRecoveryCode_TOTP(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	v, err := recovery.NewTOTP("JBSWY3DPEHPK3PXP", recovery.WithClock(clock))
	require.NoError(t, err)
	c, _ := withUsers(t, WithRecovery(v))
	ctx := context.Background()
	lockSystem(t, c)

	code, err := v.Code()
	require.NoError(t, err)
	require.NoError(t, c.ElevateWithRecoveryCode(ctx, code))
	require.NoError(t, c.SystemUnlock(ctx))
	assert.False(t, locked(t, c))

	assert.ErrorIs(t, c.ElevateWithRecoveryCode(ctx, code), common.ErrInvalidPass, "codes are single use")
}

func TestElevateWithRecoveryCode_NotConfigured(t *testing.T) {
	c, _ := withUsers(t)
	assert.ErrorIs(t, c.ElevateWithRecoveryCode(context.Background(), "123456"), common.ErrNoPermission)
}

func TestElevateWithAccount(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()
	lockSystem(t, c)

	assert.ErrorIs(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte("Wr0ng!Pass")), common.ErrInvalidPass)
	assert.Equal(t, models.EventLoginFail, lastEvent(t, c))
	assert.Equal(t, c.MaxTries(), tries(t, c), "elevation does not touch the attempt counter")
	account, _, err := c.ElevationFailures()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), account)

	require.NoError(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte(adminPass)))
	s, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, uint8(adminSlot), s.Slot)
	assert.True(t, s.Elevated)
	account, _, err = c.ElevationFailures()
	require.NoError(t, err)
	assert.Zero(t, account, "success clears the throttle")

	require.NoError(t, c.SystemUnlock(ctx))
	assert.False(t, locked(t, c))
}

func TestElevateWithAccount_SameAnswerWithoutAdminRole(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"normal user, right password", aliceName, alicePass},
		{"normal user, wrong password", aliceName, "Wr0ng!Pass"},
		{"guest, right password", guestName, guestPass},
		{"unknown user", "nobody1", adminPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := withUsers(t)
			ctx := context.Background()
			lockSystem(t, c)

			err := c.ElevateWithAccount(ctx, []byte(tt.username), []byte(tt.password))
			assert.ErrorIs(t, err, common.ErrNoPermission)
			assert.Equal(t, models.EventLoginFail, lastEvent(t, c))
			_, ok := c.Session()
			assert.False(t, ok)

			account, _, err := c.ElevationFailures()
			require.NoError(t, err)
			assert.Equal(t, uint8(1), account)
		})
	}
}

func TestElevateWithAccount_RefusedAfterRepeatedFailures(t *testing.T) {
	c, mem := withUsers(t)
	ctx := context.Background()
	lockSystem(t, c)

	for i := uint8(0); i < c.MaxTries(); i++ {
		assert.ErrorIs(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte("Wr0ng!Pass")), common.ErrInvalidPass)
	}
	assert.ErrorIs(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte(adminPass)), common.ErrSystemLocked)
	assert.ErrorIs(t, c.ElevateWithAccount(ctx, []byte(rootName), []byte(rootPass)), common.ErrSystemLocked)
	_, ok := c.Session()
	assert.False(t, ok)
	assert.True(t, locked(t, c))

	account, _, err := c.ElevationFailures()
	require.NoError(t, err)
	assert.Equal(t, c.MaxTries(), account, "counter saturates at the limit")

	restarted, err := New(ctx, mem)
	require.NoError(t, err)
	assert.ErrorIs(t, restarted.ElevateWithAccount(ctx, []byte(adminName), []byte(adminPass)), common.ErrSystemLocked,
		"the throttle survives a restart")
}

func TestElevateWithRecoveryCode_RefusedAfterRepeatedFailures(t *testing.T) {
	c, _ := withUsers(t, WithRecovery(fakeVerifier("424242")))
	ctx := context.Background()
	lockSystem(t, c)

	for i := uint8(0); i < c.MaxTries(); i++ {
		assert.ErrorIs(t, c.ElevateWithRecoveryCode(ctx, "000000"), common.ErrInvalidPass)
	}
	assert.ErrorIs(t, c.ElevateWithRecoveryCode(ctx, "424242"), common.ErrSystemLocked)
	_, ok := c.Session()
	assert.False(t, ok)

	_, recovered, err := c.ElevationFailures()
	require.NoError(t, err)
	assert.Equal(t, c.MaxTries(), recovered)

	// The account path has its own budget and a valid code clears both.
	require.NoError(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte(adminPass)))
	require.NoError(t, c.SystemUnlock(ctx))
	assert.False(t, locked(t, c))
}

func TestElevateWithRecoveryCode_ClearsBothThrottles(t *testing.T) {
	c, _ := withUsers(t, WithRecovery(fakeVerifier("424242")))
	ctx := context.Background()

	assert.ErrorIs(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte("Wr0ng!Pass")), common.ErrInvalidPass)
	assert.ErrorIs(t, c.ElevateWithRecoveryCode(ctx, "000000"), common.ErrInvalidPass)
	account, recovered, err := c.ElevationFailures()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), account)
	assert.Equal(t, uint8(1), recovered)

	require.NoError(t, c.ElevateWithRecoveryCode(ctx, "424242"))
	account, recovered, err = c.ElevationFailures()
	require.NoError(t, err)
	assert.Zero(t, account)
	assert.Zero(t, recovered)
	assertIntact(t, c)
}

func TestLocked_BlocksEverythingButRecovery(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()
	lockSystem(t, c)
	require.NoError(t, c.ElevateWithAccount(ctx, []byte(adminName), []byte(adminPass)))

	assert.ErrorIs(t, c.CreateBackup(ctx), common.ErrSystemLocked)
	assert.ErrorIs(t, c.ChangePassword(ctx, []byte("N3w!Password")), common.ErrSystemLocked)
	assert.ErrorIs(t, c.DeleteUserByAdmin(ctx, guestSlot), common.ErrSystemLocked)
	assert.ErrorIs(t, c.ClearEventLog(ctx), common.ErrSystemLocked)
	_, err := enroll(t, c, "newuser1", "N3w!Password", models.RoleGuest)
	assert.ErrorIs(t, err, common.ErrSystemLocked)

	users, err := c.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestSystemLock_EndsPlainSession(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()
	signIn(t, c, aliceName, alicePass)

	require.NoError(t, c.SystemLock(ctx))
	_, ok := c.Session()
	assert.False(t, ok)
	assert.Equal(t, StateLockedOut, c.State())
	assert.Equal(t, models.EventSystemLock, lastEvent(t, c))
	assertIntact(t, c)
}

func TestResetSystem_KeepsRootAndBackup(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()
	signIn(t, c, rootName, rootPass)
	require.NoError(t, c.CreateBackup(ctx))
	require.NoError(t, c.SetSecurityLevel(ctx, models.SecurityHigh))
	backupBefore, err := c.Map().Backup()
	require.NoError(t, err)

	require.NoError(t, c.ResetSystem(ctx))

	users, err := c.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []models.UserInfo{{Slot: 0, Name: rootName, Role: models.RoleSuper}}, users)

	lvl, err := c.SecurityLevel()
	require.NoError(t, err)
	assert.Equal(t, models.SecurityLow, lvl)

	st, err := c.Map().Status()
	require.NoError(t, err)
	assert.Equal(t, models.StatusInitialized|models.StatusBackupValid, st)

	backupAfter, err := c.Map().Backup()
	require.NoError(t, err)
	assert.Equal(t, backupBefore, backupAfter)
	assert.Equal(t, models.EventSystemReset, lastEvent(t, c))
	assertIntact(t, c)

	s, ok := c.Session()
	require.True(t, ok)
	assert.Equal(t, uint8(0), s.Slot)

	signIn(t, c, rootName, rootPass)
}

func TestResetSystem_SuperOnly(t *testing.T) {
	c, mem := withUsers(t)
	signIn(t, c, adminName, adminPass)
	before := mem.Bytes()

	assert.ErrorIs(t, c.ResetSystem(context.Background()), common.ErrNoPermission)
	assert.Equal(t, before, mem.Bytes())
}

func TestSetMaintenance_SuperOnly(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()

	signIn(t, c, adminName, adminPass)
	assert.ErrorIs(t, c.SetMaintenance(ctx, true), common.ErrNoPermission)

	signIn(t, c, rootName, rootPass)
	require.NoError(t, c.SetMaintenance(ctx, true))
	st, err := c.Map().Status()
	require.NoError(t, err)
	assert.True(t, st.Has(models.StatusMaintenance))
	assertIntact(t, c)
}

func TestSetSecurityLevel(t *testing.T) {
	c, _ := withUsers(t)
	ctx := context.Background()

	signIn(t, c, adminName, adminPass)
	assert.ErrorIs(t, c.SetSecurityLevel(ctx, models.SecurityHigh), common.ErrNoPermission)

	signIn(t, c, rootName, rootPass)
	assert.ErrorIs(t, c.SetSecurityLevel(ctx, models.SecurityLevel(7)), common.ErrNoPermission)
	require.NoError(t, c.SetSecurityLevel(ctx, models.SecurityHigh))

	e, err := c.BeginEnrollment()
	require.NoError(t, err)
	assert.ErrorIs(t, e.SetPassword([]byte("Str0ng!Pass")), common.ErrInvalidPass)
	assert.NoError(t, e.SetPassword([]byte("Str0ng!Pass12")))

	signIn(t, c, aliceName, alicePass)
}
