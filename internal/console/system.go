package console

import (
	"context"
	"fmt"
)

// Level prints the security level, or sets it when an argument is given.
func (a *App) Level(ctx context.Context, args []string) error {
	if len(args) == 0 {
		lvl, err := a.sc.SecurityLevel()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Security level %s, minimum password length %d\n", lvl, lvl.MinPasswordLength())
		return nil
	}
	lvl, err := parseLevel(args[0])
	if err != nil {
		return err
	}
	return a.sc.SetSecurityLevel(ctx, lvl)
}

// Maintenance switches maintenance mode on or off.
func (a *App) Maintenance(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: maintenance on|off")
	}
	switch args[0] {
	case "on":
		return a.sc.SetMaintenance(ctx, true)
	case "off":
		return a.sc.SetMaintenance(ctx, false)
	default:
		return fmt.Errorf("usage: maintenance on|off")
	}
}

func (a *App) Backup(ctx context.Context) error {
	return a.sc.CreateBackup(ctx)
}

func (a *App) Restore(ctx context.Context) error {
	return a.sc.RestoreBackup(ctx)
}

// Reset restores defaults but keeps the root account and the backup.
func (a *App) Reset(ctx context.Context) error {
	ok, err := Confirm(a.reader, "Reset the system to defaults", a.out)
	if err != nil || !ok {
		return err
	}
	return a.sc.ResetSystem(ctx)
}

// FactoryReset erases everything, backup included.
func (a *App) FactoryReset(ctx context.Context) error {
	ok, err := Confirm(a.reader, "Erase all accounts, the backup and the event log", a.out)
	if err != nil || !ok {
		return err
	}
	return a.sc.FactoryReset(ctx)
}

// Status prints the engine state and the persisted status byte.
func (a *App) Status(ctx context.Context) error {
	m := a.sc.Map()
	st, err := m.Status()
	if err != nil {
		return err
	}
	tries, err := a.sc.Tries()
	if err != nil {
		return err
	}
	lvl, err := a.sc.SecurityLevel()
	if err != nil {
		return err
	}
	n, err := m.UserCount()
	if err != nil {
		return err
	}
	intact, err := m.VerifyIntegrity()
	if err != nil {
		return err
	}
	backup, err := m.BackupValid()
	if err != nil {
		return err
	}
	last, err := a.sc.GetLastEvent()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "state:      %s\n", a.sc.State())
	if s, ok := a.sc.Session(); ok {
		fmt.Fprintf(a.out, "session:    %s (%s) elevated=%t\n", s.Name, s.Role, s.Elevated)
	}
	fmt.Fprintf(a.out, "status:     %s\n", st)
	fmt.Fprintf(a.out, "tries:      %d/%d\n", tries, a.sc.MaxTries())
	fmt.Fprintf(a.out, "level:      %s\n", lvl)
	fmt.Fprintf(a.out, "users:      %d\n", n)
	fmt.Fprintf(a.out, "checksum:   %s\n", okText(intact))
	fmt.Fprintf(a.out, "backup:     %s\n", okText(backup))
	fmt.Fprintf(a.out, "last event: %s\n", last)
	return nil
}

func okText(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}
