package console

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/shared"
)

// Enroll creates an account. On a device without a root account the first
// enrollment provisions root and the role question is skipped.
func (a *App) Enroll(ctx context.Context) error {
	e, err := a.sc.BeginEnrollment()
	if err != nil {
		return err
	}
	defer e.Wipe()

	name, err := getSimpleText(a.reader, "New username", a.out)
	if err != nil {
		return err
	}
	if err := e.SetUsername([]byte(name)); err != nil {
		return err
	}

	pw, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	err = e.SetPassword(pw)
	shared.WipeByteArray(pw)
	if err != nil {
		return err
	}

	if a.isSignedIn() {
		r, err := getSimpleText(a.reader, "Role (guest/normal/admin)", a.out)
		if err != nil {
			return err
		}
		role, err := parseRole(r)
		if err != nil {
			return err
		}
		if err := e.SetRole(role); err != nil {
			return err
		}
	}

	u, err := a.sc.CreateUser(ctx, e)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s in slot %d as %s\n", u.Name, u.Slot, u.Role)
	return nil
}

// Passwd changes the signed-in user's password.
func (a *App) Passwd(ctx context.Context) error {
	pw, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pw)

	again, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(again)

	if string(pw) != string(again) {
		return fmt.Errorf("passwords do not match")
	}
	return a.sc.ChangePassword(ctx, pw)
}

// Rename changes the signed-in user's name.
func (a *App) Rename(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "New username", a.out)
	if err != nil {
		return err
	}
	return a.sc.ChangeUsername(ctx, []byte(name))
}

// DeleteSelf removes the signed-in account after confirmation.
func (a *App) DeleteSelf(ctx context.Context) error {
	ok, err := Confirm(a.reader, "Delete your account", a.out)
	if err != nil || !ok {
		return err
	}
	return a.sc.DeleteSelf(ctx)
}

// DeleteUser removes the account in the given slot.
func (a *App) DeleteUser(ctx context.Context, args []string) error {
	slot, err := parseSlot(args)
	if err != nil {
		return err
	}
	return a.sc.DeleteUserByAdmin(ctx, slot)
}

// SetRole changes the role of the account in the given slot.
func (a *App) SetRole(ctx context.Context, args []string) error {
	slot, err := parseSlot(args)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("role is required")
	}
	role, err := parseRole(args[1])
	if err != nil {
		return err
	}
	return a.sc.SetUserType(ctx, slot, role)
}

// Users lists the accounts with their capabilities.
func (a *App) Users(ctx context.Context) error {
	if !a.isSignedIn() {
		return common.ErrNoPermission
	}
	list, err := a.sc.ListUsers()
	if err != nil {
		return err
	}
	for _, u := range list {
		fmt.Fprintf(a.out, "%2d  %-20s %-6s %s\n", u.Slot, u.Name, u.Role, models.PermissionsFor(u.Role))
	}
	fmt.Fprintf(a.out, "%d account(s)\n", len(list))
	return nil
}
