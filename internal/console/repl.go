package console

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	Elevate(ctx context.Context) error
	Recover(ctx context.Context) error
	Unlock(ctx context.Context) error
	Enroll(ctx context.Context) error
	Passwd(ctx context.Context) error
	Rename(ctx context.Context) error
	DeleteSelf(ctx context.Context) error
	DeleteUser(ctx context.Context, args []string) error
	SetRole(ctx context.Context, args []string) error
	Users(ctx context.Context) error
	Level(ctx context.Context, args []string) error
	Maintenance(ctx context.Context, args []string) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context) error
	Reset(ctx context.Context) error
	FactoryReset(ctx context.Context) error
	Events(ctx context.Context) error
	ClearLog(ctx context.Context) error
	Archive(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

const helpSignedOut = "Available commands: signin, enroll, elevate, recover, status, exit"
const helpSignedIn = "Available commands: signout, enroll, passwd, rename, delete-self, deluser <slot>, " +
	"role <slot> <role>, users, level [low|medium|high], maintenance on|off, backup, restore, " +
	"reset, factory-reset, unlock, events, clearlog, archive, export <file>, import <file>, status, exit"

// runREPL reads commands from reader and dispatches them to a until EOF or
// "exit". The result of every command is printed as OK or as its error code.
// Commands share reader with their own prompts, so input is consumed one
// line at a time.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("sk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}
			continue

		case "signin", "login":
			err = a.SignIn(ctx)
		case "signout", "logout":
			err = a.SignOut(ctx)
		case "elevate":
			err = a.Elevate(ctx)
		case "recover":
			err = a.Recover(ctx)
		case "unlock":
			err = a.Unlock(ctx)

		case "enroll", "adduser":
			err = a.Enroll(ctx)
		case "passwd":
			err = a.Passwd(ctx)
		case "rename":
			err = a.Rename(ctx)
		case "delete-self":
			err = a.DeleteSelf(ctx)
		case "deluser":
			err = a.DeleteUser(ctx, args)
		case "role":
			err = a.SetRole(ctx, args)
		case "users":
			err = a.Users(ctx)

		case "level":
			err = a.Level(ctx, args)
		case "maintenance":
			err = a.Maintenance(ctx, args)
		case "backup":
			err = a.Backup(ctx)
		case "restore":
			err = a.Restore(ctx)
		case "reset":
			err = a.Reset(ctx)
		case "factory-reset":
			err = a.FactoryReset(ctx)

		case "events":
			err = a.Events(ctx)
		case "clearlog":
			err = a.ClearLog(ctx)
		case "archive":
			err = a.Archive(ctx)
		case "export":
			err = a.Export(ctx, args)
		case "import":
			err = a.Import(ctx, args)
		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}
		printlnFn(describe(err))
	}
}
