package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Domains(ctx context.Context, args []string) error
	Tags(ctx context.Context, args []string) error
	Slots(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Top(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	GC(ctx context.Context) error
	SignIn(ctx context.Context, args []string) error
	SignOut(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  domains [list|archived|add|rename|color|order|archive|unarchive|delete]
  tags    [list|archived|add|rename|color|move|archive|unarchive|delete]
  slots   [list|add|tag|note|move|delete]
  stats [split|primary] [today|week|month|<from> <to>]
  top <n> [split|primary] [range]
  sync, gc, status, signin [token], signout, help, exit`

// runREPL reads commands from scanner until EOF or "exit"/"quit" and
// dispatches them to a. Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tk %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "domains", "d":
			err = a.Domains(ctx, args)
		case "tags", "t":
			err = a.Tags(ctx, args)
		case "slots", "s":
			err = a.Slots(ctx, args)
		case "stats":
			err = a.Stats(ctx, args)
		case "top":
			err = a.Top(ctx, args)
		case "sync":
			err = a.Sync(ctx)
		case "gc":
			err = a.GC(ctx)
		case "signin", "login":
			err = a.SignIn(ctx, args)
		case "signout", "logout":
			err = a.SignOut(ctx)
		case "status":
			err = a.Status(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			if errors.Is(err, errUsage) {
				printlnFn("Usage:", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
			} else {
				printlnFn("Error:", err)
			}
		}
	}
}

// Root runs the interactive loop on the app's input until the user exits.
func (a *App) Root(ctx context.Context) {
	printlnFn("Timekeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
