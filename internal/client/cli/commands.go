package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lmsgate/internal/client/services"
	"github.com/dmitrijs2005/lmsgate/internal/client/session"
	"github.com/dmitrijs2005/lmsgate/internal/common"
)

// argOrPrompt returns the first argument, or asks for the value.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// readSecret asks for a password and hands it to fn. The input buffer is
// wiped afterwards.
func (a *App) readSecret(prompt string, fn func(string) error) error {
	pw, err := getPassword(a.out, prompt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	return fn(string(pw))
}

// deliveryFailed points the bootstrap user to rescue mode once code
// delivery failed.
func (a *App) deliveryFailed(err error) error {
	if err != nil && a.flow.State().RescueEligible {
		printlnFn("Code delivery failed. Type 'rescue' to open an emergency super-admin session.")
	}
	return err
}

func (a *App) Email(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, "Enter email")
	if err != nil {
		return err
	}
	return a.deliveryFailed(a.flow.SubmitEmail(ctx, email))
}

func (a *App) Password(ctx context.Context) error {
	return a.readSecret("Enter password: ", func(pw string) error {
		return a.flow.SubmitPassword(ctx, pw)
	})
}

func (a *App) Forgot(ctx context.Context) error {
	return a.deliveryFailed(a.flow.ForgotPassword(ctx))
}

func (a *App) Code(ctx context.Context, args []string) error {
	code, err := a.argOrPrompt(args, "Enter the code from the email")
	if err != nil {
		return err
	}
	return a.flow.SubmitCode(ctx, code)
}

// Resend requests a new code. While the cooldown runs it only reports the
// remaining time.
func (a *App) Resend(ctx context.Context) error {
	sent, err := a.flow.Resend(ctx)
	if err != nil {
		return a.deliveryFailed(err)
	}
	if !sent {
		printlnFn(fmt.Sprintf("You can request a new code in %ds.", a.flow.State().ResendCooldown))
		return nil
	}
	printlnFn("A new code was sent.")
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter your full name", a.out)
	if err != nil {
		return err
	}
	return a.readSecret("Choose a password: ", func(pw string) error {
		return a.flow.CompleteProfile(ctx, name, pw)
	})
}

func (a *App) NewPassword(ctx context.Context) error {
	return a.readSecret("Choose a new password: ", func(pw string) error {
		return a.flow.ResetPassword(ctx, pw)
	})
}

func (a *App) Rescue(ctx context.Context) error {
	return a.flow.EnterRescueMode()
}

func (a *App) Back(ctx context.Context) error {
	a.flow.Back()
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.flow.State()
	printlnFn("step:", st.Step.String())
	if st.Email != "" {
		printlnFn("email:", st.Email)
	}
	if st.Step == session.StepCodeVerification {
		printlnFn(fmt.Sprintf("resend available in: %ds", st.ResendCooldown))
	}
	if st.Processing {
		printlnFn("a request is in progress")
	}
	if st.Err != nil {
		printlnFn("last error:", describe(st.Err))
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	acc, err := a.accounts.Current(ctx)
	if errors.Is(err, services.ErrNoAccount) {
		printlnFn("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}

	printlnFn("id:", acc.User.ID)
	printlnFn("email:", acc.User.Email)
	printlnFn("role:", acc.User.Role.String())
	if acc.User.FullName != "" {
		printlnFn("name:", acc.User.FullName)
	}
	if acc.Rescue {
		printlnFn("session: rescue")
	}
	return nil
}

// Logout ends the session and wipes the stored profile. The local profile
// is removed even if the service could not be reached.
func (a *App) Logout(ctx context.Context) error {
	signOutErr := a.flow.SignOut(ctx)
	if err := a.accounts.Forget(ctx); err != nil {
		return errors.Join(signOutErr, err)
	}
	if signOutErr != nil {
		return signOutErr
	}
	printlnFn("Signed out.")
	return nil
}

// Help lists the commands available in the current step.
func (a *App) Help() string {
	return helpText(a.flow.State())
}

func helpText(st session.State) string {
	const always = "status, whoami, back, exit"
	switch st.Step {
	case session.StepEmailEntry:
		if st.RescueEligible {
			return "Available commands: email <address>, rescue, " + always
		}
		return "Available commands: email <address>, " + always
	case session.StepPasswordEntry:
		return "Available commands: password, forgot, " + always
	case session.StepCodeVerification:
		return "Available commands: code <otp>, resend, " + always
	case session.StepProfileCompletion:
		return "Available commands: profile, logout, " + always
	case session.StepPasswordReset:
		return "Available commands: newpassword, logout, " + always
	default:
		return "Available commands: logout, status, whoami, exit"
	}
}

// describe renders a flow error for the user.
func describe(err error) string {
	switch session.KindOf(err) {
	case session.KindRateLimited:
		return "too many requests, wait a moment before trying again"
	case session.KindService:
		return "the identity service failed: " + err.Error()
	default:
		return err.Error()
	}
}
