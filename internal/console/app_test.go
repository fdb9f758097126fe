package console

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/config"
	"github.com/dmitrijs2005/safekeeper/internal/eeprom"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rootName = "rootuser"
	rootPass = "R00t!Pass"
	userName = "alice123"
	userPass = "Str0ng!Pass"
)

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no more passwords")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

type recordingArchiver struct {
	got []models.Event
}

func (r *recordingArchiver) Archive(_ context.Context, evs []models.Event) (string, error) {
	r.got = append(r.got, evs...)
	return "batch-1", nil
}

func newTestApp(t *testing.T, opts ...services.Option) (*App, *bytes.Buffer) {
	t.Helper()
	sc, err := services.New(context.Background(), eeprom.NewMemory(), opts...)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	cfg := &config.Config{}
	cfg.LoadDefaults()
	a := NewApp(cfg, sc, nil)
	a.out = out
	a.timeout = 0
	return a, out
}

// provision enrolls root and signs in as root.
func provision(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	stubPasswords(t, rootPass, rootPass)
	a.reader = readerFromLines(rootName, rootName)
	require.NoError(t, a.Enroll(ctx))
	require.NoError(t, a.SignIn(ctx))
}

func TestEnroll_FirstAccountIsRoot(t *testing.T) {
	a, out := newTestApp(t)
	stubPasswords(t, rootPass)
	a.reader = readerFromLines(rootName)

	require.NoError(t, a.Enroll(context.Background()))
	assert.Contains(t, out.String(), "Created rootuser in slot 0 as SUPER")
}

func TestEnroll_AsRoot(t *testing.T) {
	a, out := newTestApp(t)
	provision(t, a)

	stubPasswords(t, userPass)
	a.reader = readerFromLines(userName, "normal")
	require.NoError(t, a.Enroll(context.Background()))
	assert.Contains(t, out.String(), "Created alice123 in slot 1 as NORMAL")

	out.Reset()
	require.NoError(t, a.Users(context.Background()))
	assert.Contains(t, out.String(), "rootuser")
	assert.Contains(t, out.String(), "alice123")
	assert.Contains(t, out.String(), "2 account(s)")
}

func TestEnroll_WeakPassword(t *testing.T) {
	a, _ := newTestApp(t)
	stubPasswords(t, "weak")
	a.reader = readerFromLines(rootName)

	err := a.Enroll(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidPass)
}

func TestSignIn_PromptAndLockout(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	assert.Equal(t, "rootuser@super", a.prompt())

	ctx := context.Background()
	require.NoError(t, a.SignOut(ctx))
	assert.Equal(t, "guest", a.prompt())

	for i := 0; i < int(services.DefaultMaxTries); i++ {
		stubPasswords(t, "Wr0ng!Pass")
		a.reader = readerFromLines(rootName)
		err := a.SignIn(ctx)
		if i < int(services.DefaultMaxTries)-1 {
			assert.ErrorIs(t, err, common.ErrInvalidPass)
		}
	}
	assert.Equal(t, "locked", a.prompt())

	stubPasswords(t, rootPass)
	a.reader = readerFromLines(rootName)
	assert.ErrorIs(t, a.SignIn(ctx), common.ErrSystemLocked)
}

func TestSignIn_ElevateAndUnlock(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	ctx := context.Background()
	require.NoError(t, a.sc.SystemLock(ctx))

	stubPasswords(t, rootPass)
	a.reader = readerFromLines(rootName)
	require.NoError(t, a.Elevate(ctx))
	assert.Equal(t, "rootuser!@super", a.prompt())

	require.NoError(t, a.Unlock(ctx))
	locked, err := a.sc.IsSystemLocked()
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRecover_NotConfigured(t *testing.T) {
	a, _ := newTestApp(t)
	stubPasswords(t, "123456")
	assert.ErrorIs(t, a.Recover(context.Background()), common.ErrNoPermission)
}

func TestSignIn_IdleTimeout(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	ctx := context.Background()
	require.NoError(t, a.SignOut(ctx))

	a.timeout = 5 * time.Millisecond
	orig := getSimpleText
	t.Cleanup(func() { getSimpleText = orig })
	getSimpleText = func(r *bufio.Reader, prompt string, w io.Writer) (string, error) {
		time.Sleep(100 * time.Millisecond)
		return rootName, nil
	}
	stubPasswords(t, rootPass)

	assert.ErrorIs(t, a.SignIn(ctx), common.ErrTimeout)
	tries, err := a.sc.Tries()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), tries)
	assert.False(t, a.isSignedIn())
}

func TestSignIn_InputClosed(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	ctx := context.Background()

	a.reader = bufio.NewReader(strings.NewReader(""))
	assert.Error(t, a.SignIn(ctx))
	assert.Equal(t, services.StateIdle, a.sc.State())
}

func TestUsers_NeedsSession(t *testing.T) {
	a, _ := newTestApp(t)
	assert.ErrorIs(t, a.Users(context.Background()), common.ErrNoPermission)
}

func TestAdminCommands(t *testing.T) {
	a, out := newTestApp(t)
	provision(t, a)
	ctx := context.Background()

	stubPasswords(t, userPass)
	a.reader = readerFromLines(userName, "guest")
	require.NoError(t, a.Enroll(ctx))

	require.NoError(t, a.SetRole(ctx, []string{"1", "admin"}))
	role, err := a.sc.GetUserType(1)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	assert.Error(t, a.SetRole(ctx, []string{"1"}))
	assert.Error(t, a.SetRole(ctx, []string{"1", "wizard"}))
	assert.Error(t, a.DeleteUser(ctx, nil))
	assert.Error(t, a.DeleteUser(ctx, []string{"-1"}))
	assert.ErrorIs(t, a.DeleteUser(ctx, []string{"0"}), common.ErrNoPermission)
	require.NoError(t, a.DeleteUser(ctx, []string{"1"}))

	require.NoError(t, a.Level(ctx, []string{"high"}))
	out.Reset()
	require.NoError(t, a.Level(ctx, nil))
	assert.Contains(t, out.String(), "Security level HIGH, minimum password length 12")

	assert.Error(t, a.Maintenance(ctx, nil))
	require.NoError(t, a.Maintenance(ctx, []string{"on"}))
	require.NoError(t, a.Maintenance(ctx, []string{"off"}))
}

func TestSelfService(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	ctx := context.Background()

	stubPasswords(t, "N3w!RootPass", "N3w!RootPass")
	require.NoError(t, a.Passwd(ctx))

	stubPasswords(t, "N3w!RootPass", "Typo!RootPass1")
	assert.Error(t, a.Passwd(ctx))

	a.reader = readerFromLines("superroot")
	require.NoError(t, a.Rename(ctx))
	s, ok := a.sc.Session()
	require.True(t, ok)
	assert.Equal(t, "superroot", s.Name)

	a.reader = readerFromLines("yes")
	assert.ErrorIs(t, a.DeleteSelf(ctx), common.ErrNoPermission)

	require.NoError(t, a.SignOut(ctx))
	require.NoError(t, a.sc.SignIn(ctx, []byte("superroot"), []byte("N3w!RootPass")))
}

func TestBackupResetAndStatus(t *testing.T) {
	a, out := newTestApp(t)
	provision(t, a)
	ctx := context.Background()

	require.NoError(t, a.Backup(ctx))
	require.NoError(t, a.Restore(ctx))

	require.NoError(t, a.sc.SignIn(ctx, []byte(rootName), []byte(rootPass)))
	a.reader = readerFromLines("no")
	require.NoError(t, a.Reset(ctx))
	n, err := a.sc.Map().UserCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out.Reset()
	require.NoError(t, a.Status(ctx))
	s := out.String()
	assert.Contains(t, s, "state:      AUTHENTICATED")
	assert.Contains(t, s, "status:     INITIALIZED|BACKUP_VALID")
	assert.Contains(t, s, "tries:      0/3")
	assert.Contains(t, s, "checksum:   valid")
	assert.Contains(t, s, "backup:     valid")

	a.reader = readerFromLines("yes")
	require.NoError(t, a.FactoryReset(ctx))
	assert.False(t, a.isSignedIn())
	valid, err := a.sc.Map().BackupValid()
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestEventsAndArchive(t *testing.T) {
	a, out := newTestApp(t)
	provision(t, a)
	ctx := context.Background()

	out.Reset()
	require.NoError(t, a.Events(ctx))
	assert.Contains(t, out.String(), "USER_CREATE")
	assert.Contains(t, out.String(), "LOGIN_SUCCESS")

	assert.ErrorIs(t, a.Archive(ctx), ErrArchiveDisabled)

	rec := &recordingArchiver{}
	a.archiver = rec
	out.Reset()
	require.NoError(t, a.Archive(ctx))
	assert.Len(t, rec.got, 2)
	assert.Contains(t, out.String(), "Archived 2 event(s) as batch batch-1")

	require.NoError(t, a.ClearLog(ctx))
	out.Reset()
	require.NoError(t, a.Events(ctx))
	assert.Contains(t, out.String(), "Event log is empty")

	require.NoError(t, a.SignOut(ctx))
	out.Reset()
	assert.ErrorIs(t, a.Events(ctx), common.ErrNoPermission)
	assert.Empty(t, out.String())
}

func TestExportImport(t *testing.T) {
	a, _ := newTestApp(t)
	provision(t, a)
	ctx := context.Background()
	a.passphrase = "correct horse battery"
	file := filepath.Join(t.TempDir(), "device.snap")

	assert.Error(t, a.Export(ctx, nil))
	require.NoError(t, a.Export(ctx, []string{file}))

	require.NoError(t, a.Level(ctx, []string{"medium"}))
	require.NoError(t, a.Import(ctx, []string{file}))
	assert.False(t, a.isSignedIn())

	lvl, err := a.sc.SecurityLevel()
	require.NoError(t, err)
	assert.Equal(t, models.SecurityLow, lvl)

	require.NoError(t, a.sc.SignIn(ctx, []byte(rootName), []byte(rootPass)))
	a.passphrase = "wrong passphrase"
	assert.ErrorIs(t, a.Import(ctx, []string{file}), common.ErrInvalidPass)
	assert.Error(t, a.Import(ctx, []string{filepath.Join(t.TempDir(), "missing")}))
}

func TestRun_CommandsSharePromptInput(t *testing.T) {
	lines := capture(t)
	a, out := newTestApp(t)
	stubPasswords(t, rootPass, rootPass)
	a.reader = readerFromLines(
		"enroll", rootName,
		"signin", rootName,
		"status",
		"exit",
	)

	a.Run(context.Background())

	assert.Contains(t, out.String(), "Created rootuser in slot 0 as SUPER")
	assert.Contains(t, out.String(), "Signed in as rootuser (SUPER)")
	assert.Contains(t, out.String(), "state:      AUTHENTICATED")
	assert.Contains(t, *lines, "sk rootuser@super> ")
	assert.NotContains(t, *lines, "Unknown command: rootuser")
	assert.False(t, a.isSignedIn(), "Run signs out on exit")
}
