package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn and printFn are test seams for user-facing output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Help() string
	Email(ctx context.Context, args []string) error
	Password(ctx context.Context) error
	Forgot(ctx context.Context) error
	Code(ctx context.Context, args []string) error
	Resend(ctx context.Context) error
	Profile(ctx context.Context) error
	NewPassword(ctx context.Context) error
	Rescue(ctx context.Context) error
	Back(ctx context.Context) error
	Status(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the lmsgate CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF, when ctx is done, or
// when the user types "exit" or "quit".
//
// Commands
//
//	help                 show the commands available in the current step
//	email <address>      start signing in
//	password             enter the account password
//	forgot               send a password recovery code
//	code <otp>           verify the one-time code
//	resend               send a new code once the cooldown elapsed
//	profile              set full name and password
//	newpassword          choose a new password after recovery
//	rescue               open the emergency session (bootstrap email only)
//	back                 return to email entry
//	status               show the flow state
//	whoami               show the stored profile
//	logout               sign out
//	exit | quit          leave the program
//
// Errors returned by handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printFn(fmt.Sprintf("lms %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(a.Help())
		case "email":
			cmdErr = a.Email(ctx, args)
		case "password":
			cmdErr = a.Password(ctx)
		case "forgot":
			cmdErr = a.Forgot(ctx)
		case "code":
			cmdErr = a.Code(ctx, args)
		case "resend":
			cmdErr = a.Resend(ctx)
		case "profile":
			cmdErr = a.Profile(ctx)
		case "newpassword":
			cmdErr = a.NewPassword(ctx)
		case "rescue":
			cmdErr = a.Rescue(ctx)
		case "back":
			cmdErr = a.Back(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}
