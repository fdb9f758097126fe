package console

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/shared"
)

// Events prints the event log oldest first.
func (a *App) Events(ctx context.Context) error {
	evs, err := a.sc.Events()
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		fmt.Fprintln(a.out, "Event log is empty")
		return nil
	}
	for _, ev := range evs {
		who := "-"
		if ev.UserIndex != models.NoUser {
			who = fmt.Sprintf("%d", ev.UserIndex)
		}
		fmt.Fprintf(a.out, "#%03d  %-14s user %s\n", ev.Sequence, ev.Type, who)
	}
	return nil
}

func (a *App) ClearLog(ctx context.Context) error {
	return a.sc.ClearEventLog(ctx)
}

// Archive copies the event log into the host archive.
func (a *App) Archive(ctx context.Context) error {
	if a.archiver == nil {
		return ErrArchiveDisabled
	}
	batch, n, err := a.sc.ArchiveEvents(ctx, a.archiver)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Archived %d event(s) as batch %s\n", n, batch)
	return nil
}

// Export writes a sealed snapshot of the whole store to a file.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: export <file>")
	}
	pass, err := a.snapshotPassphrase()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pass)

	blob, err := a.sc.ExportSnapshot(ctx, pass)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], blob, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Fprintf(a.out, "Snapshot written to %s\n", args[0])
	return nil
}

// Import replaces the store with a sealed snapshot read from a file.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: import <file>")
	}
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	pass, err := a.snapshotPassphrase()
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(pass)

	return a.sc.ImportSnapshot(ctx, blob, pass)
}

// snapshotPassphrase returns the configured passphrase or asks for one.
func (a *App) snapshotPassphrase() ([]byte, error) {
	if a.passphrase != "" {
		return []byte(a.passphrase), nil
	}
	return getPassword("Snapshot passphrase", a.out)
}
