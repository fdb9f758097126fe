package console

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/shared"
)

// SignIn walks the user through the two-step sign-in. Each prompt is guarded
// by the idle timer; when it fires the engine reports a timeout at the next
// step.
func (a *App) SignIn(ctx context.Context) error {
	if err := a.sc.BeginSignIn(ctx); err != nil {
		return err
	}
	rearm, stop := a.watchInput()
	defer stop()

	name, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		a.sc.SignOut(ctx)
		return err
	}
	if err := a.sc.SubmitUsername(ctx, []byte(name)); err != nil {
		return err
	}

	rearm()
	pw, err := getPassword("Password", a.out)
	if err != nil {
		a.sc.SignOut(ctx)
		return err
	}
	defer shared.WipeByteArray(pw)

	if err := a.sc.SubmitPassword(ctx, pw); err != nil {
		return err
	}
	if s, ok := a.sc.Session(); ok {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", s.Name, s.Role)
	}
	return nil
}

// SignOut ends the session.
func (a *App) SignOut(ctx context.Context) error {
	a.sc.SignOut(ctx)
	return nil
}

// Elevate opens a maintenance session for an ADMIN or SUPER account. It is
// the way back into a locked system.
func (a *App) Elevate(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Admin username", a.out)
	if err != nil {
		return err
	}
	pw, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pw)

	return a.sc.ElevateWithAccount(ctx, []byte(name), pw)
}

// Recover opens a SUPER session with the master recovery code.
func (a *App) Recover(ctx context.Context) error {
	code, err := getPassword("Recovery code", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(code)

	return a.sc.ElevateWithRecoveryCode(ctx, string(code))
}

// Unlock clears the system lock from a maintenance session.
func (a *App) Unlock(ctx context.Context) error {
	return a.sc.SystemUnlock(ctx)
}
