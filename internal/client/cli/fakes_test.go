package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/client/config"
	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/dmitrijs2005/lmsgate/internal/client/services"
	"github.com/dmitrijs2005/lmsgate/internal/client/session"
	"github.com/dmitrijs2005/lmsgate/internal/logging"
)

// fakeFlow records calls and returns scripted results.
type fakeFlow struct {
	state session.State
	err   error
	sent  bool

	calls []string
	args  []string
}

func (f *fakeFlow) record(call string, args ...string) error {
	f.calls = append(f.calls, call)
	f.args = append(f.args, args...)
	return f.err
}

func (f *fakeFlow) Start(context.Context) error { return f.record("start") }
func (f *fakeFlow) SubmitEmail(_ context.Context, email string) error {
	return f.record("email", email)
}
func (f *fakeFlow) SubmitPassword(_ context.Context, pw string) error {
	return f.record("password", pw)
}
func (f *fakeFlow) ForgotPassword(context.Context) error { return f.record("forgot") }
func (f *fakeFlow) SubmitCode(_ context.Context, code string) error {
	return f.record("code", code)
}
func (f *fakeFlow) Resend(context.Context) (bool, error) {
	err := f.record("resend")
	return f.sent && err == nil, err
}
func (f *fakeFlow) CompleteProfile(_ context.Context, name, pw string) error {
	return f.record("profile", name, pw)
}
func (f *fakeFlow) ResetPassword(_ context.Context, pw string) error {
	return f.record("newpassword", pw)
}
func (f *fakeFlow) EnterRescueMode() error { return f.record("rescue") }
func (f *fakeFlow) Back() { _ = f.record("back") }
func (f *fakeFlow) SignOut(context.Context) error { return f.record("signout") }
func (f *fakeFlow) State() session.State { return f.state }
func (f *fakeFlow) Close() { _ = f.record("close") }

type fakeAccounts struct {
	mu sync.Mutex

	current    *services.Account
	currentErr error
	forgetErr  error
	pingErr    error

	remembered []services.Account
	forgotten  int
	closed     bool
}

func (f *fakeAccounts) Remember(_ context.Context, u identity.User, rescue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remembered = append(f.remembered, services.Account{User: u, Rescue: rescue})
	return nil
}

func (f *fakeAccounts) Current(context.Context) (*services.Account, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == nil {
		return nil, services.ErrNoAccount
	}
	return f.current, nil
}

func (f *fakeAccounts) Forget(context.Context) error {
	f.forgotten++
	return f.forgetErr
}

func (f *fakeAccounts) Ping(context.Context) error { return f.pingErr }

func (f *fakeAccounts) Close(context.Context) error {
	f.closed = true
	return nil
}

// capture redirects printlnFn and printFn into a buffer for the test.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var mu sync.Mutex
	var buf bytes.Buffer
	origPrintln, origPrint := printlnFn, printFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Fprintln(&buf, a...)
	}
	printFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Fprint(&buf, a...)
	}
	t.Cleanup(func() { printlnFn, printFn = origPrintln, origPrint })
	return &buf
}

// scriptInput replaces the interactive prompts with canned answers.
func scriptInput(t *testing.T, text []string, passwords []string) {
	t.Helper()
	origText, origPw := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(text) == 0 {
			return "", io.EOF
		}
		v := text[0]
		text = text[1:]
		return v, nil
	}
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		v := passwords[0]
		passwords = passwords[1:]
		return []byte(v), nil
	}
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPw })
}

func newTestApp(flow *fakeFlow, accounts *fakeAccounts) *App {
	return &App{
		flow:     flow,
		accounts: accounts,
		logger:   logging.Nop{},
		reader:   bufio.NewReader(strings.NewReader("")),
		out:      io.Discard,
	}
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.OnlineCheckInterval = time.Hour
	return c
}
