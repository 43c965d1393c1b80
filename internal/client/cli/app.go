package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/client/config"
	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/dmitrijs2005/lmsgate/internal/client/services"
	"github.com/dmitrijs2005/lmsgate/internal/client/session"
	"github.com/dmitrijs2005/lmsgate/internal/client/storage"
	"github.com/dmitrijs2005/lmsgate/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds a single liveness probe.
const pingTimeout = 3 * time.Second

// Flow is the session flow the CLI drives. *session.Controller implements it.
type Flow interface {
	Start(ctx context.Context) error
	SubmitEmail(ctx context.Context, email string) error
	SubmitPassword(ctx context.Context, password string) error
	ForgotPassword(ctx context.Context) error
	SubmitCode(ctx context.Context, code string) error
	Resend(ctx context.Context) (bool, error)
	CompleteProfile(ctx context.Context, fullName, password string) error
	ResetPassword(ctx context.Context, password string) error
	EnterRescueMode() error
	Back()
	SignOut(ctx context.Context) error
	State() session.State
	Close()
}

type App struct {
	config   *config.Config
	flow     Flow
	accounts services.AccountService
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	closeDB  func() error

	mu       sync.Mutex
	mode     Mode
	lastStep session.Step
}

// NewApp opens the local database, connects to the identity service and
// builds the session flow.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	idc, err := identity.NewGRPCClient(c.IdentityEndpointAddr, identity.WithLogger(logger))
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	a := &App{
		config:   c,
		accounts: services.NewAccountService(idc, repos.Metadata),
		logger:   logger.With("module", "cli"),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		closeDB:  repos.Close,
	}
	a.flow = session.New(idc, idc, session.Config{
		BootstrapEmail:        c.BootstrapEmail,
		DefaultResendCooldown: c.DefaultResendCooldown,
	}, session.WithLogger(logger), session.WithOnChange(a.onStateChange))

	return a, nil
}

// Run starts the flow and the connectivity watcher, then blocks in the
// REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close(ctx)

	if err := a.flow.Start(ctx); err != nil {
		return fmt.Errorf("start session flow: %w", err)
	}

	printlnFn("Welcome to lmsgate (type 'help' for commands)")
	if acc, err := a.accounts.Current(ctx); err == nil {
		printlnFn(fmt.Sprintf("Last signed in as %s (%s).", acc.User.Email, acc.User.Role))
	}
	printlnFn("Enter your email with 'email <address>'.")

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(wctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) close(ctx context.Context) {
	a.flow.Close()
	if err := a.accounts.Close(ctx); err != nil {
		a.logger.Warn(ctx, "closing identity client", "error", err)
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.logger.Warn(ctx, "closing database", "error", err)
		}
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// StartOnlineStatusWatcher pings the identity service every interval and
// tracks whether it is reachable.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.accounts.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

func (a *App) getStatus() string {
	st := a.flow.State()
	s := st.Step.String()
	if st.User != nil {
		s = st.User.Email + " " + st.User.Role.String()
	} else if st.Email != "" {
		s = st.Email + " " + s
	}
	if m := a.currentMode(); m != "" {
		s += " " + string(m)
	}
	return "(" + s + ")"
}

// onStateChange reacts to step transitions: it persists the profile once
// the flow exits and tells the user what to do next.
func (a *App) onStateChange(st session.State) {
	a.mu.Lock()
	prev := a.lastStep
	a.lastStep = st.Step
	a.mu.Unlock()

	if prev == st.Step {
		return
	}

	switch st.Step {
	case session.StepEmailEntry:
		printlnFn("Enter your email with 'email <address>'.")
	case session.StepPasswordEntry:
		printlnFn("Enter your password with 'password', or type 'forgot' to reset it.")
	case session.StepCodeVerification:
		printlnFn(fmt.Sprintf("A code was sent to %s. Enter it with 'code <otp>'.", st.Email))
	case session.StepProfileCompletion:
		printlnFn("Complete your profile with 'profile'.")
	case session.StepPasswordReset:
		printlnFn("Choose a new password with 'newpassword'.")
	case session.StepAuthenticated:
		a.signedIn(st)
	}
}

func (a *App) signedIn(st session.State) {
	if st.User == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.accounts.Remember(ctx, *st.User, st.Rescue); err != nil {
		a.logger.Error(ctx, "saving account", "error", err)
	}

	who := st.User.Email
	if st.User.FullName != "" {
		who = st.User.FullName + " <" + st.User.Email + ">"
	}
	if st.Rescue {
		printlnFn("Rescue session active: you are signed in locally as super admin.")
	}
	printlnFn(fmt.Sprintf("Signed in as %s (%s). Opening /%s.", who, st.User.Role, session.Landing(st.User.Role)))
}
