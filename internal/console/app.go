package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/config"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/services"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// ErrArchiveDisabled is returned by the archive command when no archive was
// configured.
var ErrArchiveDisabled = errors.New("event archive is not configured")

// App binds the console to one engine instance.
type App struct {
	sc         *services.SecurityContext
	archiver   services.Archiver
	reader     *bufio.Reader
	out        io.Writer
	timeout    time.Duration
	passphrase string
}

// NewApp builds a console reading from stdin and writing to stdout. archiver
// may be nil, which disables the archive command.
func NewApp(cfg *config.Config, sc *services.SecurityContext, archiver services.Archiver) *App {
	return &App{
		sc:         sc,
		archiver:   archiver,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		timeout:    cfg.InputTimeout,
		passphrase: cfg.SnapshotPassphrase,
	}
}

// Run serves commands until EOF or "exit". Any active session is closed on
// return.
func (a *App) Run(ctx context.Context) {
	defer a.sc.SignOut(ctx)
	fmt.Fprintln(a.out, "safekeeper console, type help for commands")
	runREPL(ctx, a, a.prompt, a.reader)
}

func (a *App) isSignedIn() bool {
	_, ok := a.sc.Session()
	return ok
}

func (a *App) prompt() string {
	if s, ok := a.sc.Session(); ok {
		tag := s.Name
		if s.Elevated {
			tag += "!"
		}
		return fmt.Sprintf("%s@%s", tag, strings.ToLower(s.Role.String()))
	}
	if a.sc.State() == services.StateLockedOut {
		return "locked"
	}
	return "guest"
}

// describe renders an engine result as the console prints it.
func describe(err error) string {
	if err == nil {
		return "OK"
	}
	var code common.ErrorCode
	if errors.As(err, &code) {
		return fmt.Sprintf("error 0x%02X: %s", uint8(code), err)
	}
	return fmt.Sprintf("error: %s", err)
}

// watchInput arms the idle timer for credential entry. The returned rearm
// restarts it for the next prompt; stop disarms it.
func (a *App) watchInput() (rearm func(), stop func()) {
	if a.timeout <= 0 {
		return func() {}, func() {}
	}
	t := time.AfterFunc(a.timeout, a.sc.SignalTimeout)
	return func() { t.Reset(a.timeout) }, func() { t.Stop() }
}

func parseSlot(args []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("slot number is required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad slot %q", args[0])
	}
	return n, nil
}

func parseRole(s string) (models.Role, error) {
	for r := models.RoleGuest; r <= models.RoleSuper; r++ {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func parseLevel(s string) (models.SecurityLevel, error) {
	for l := models.SecurityLow; l <= models.SecurityHigh; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown security level %q", s)
}
