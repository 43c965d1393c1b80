package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/dmitrijs2005/lmsgate/internal/common"
	"github.com/dmitrijs2005/lmsgate/internal/logging"
	"github.com/google/uuid"
)

// DefaultResendCooldown applies when neither the config nor the remote
// settings store provide a cooldown.
const DefaultResendCooldown = 60 * time.Second

// Config holds the injectable policy of a flow.
type Config struct {
	// BootstrapEmail may self-provision and use rescue mode. Empty disables both.
	BootstrapEmail string
	// DefaultResendCooldown is used when the remote setting is absent or
	// malformed.
	DefaultResendCooldown time.Duration
}

// TickerFunc starts a periodic tick source and returns its channel and a
// stop function.
type TickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l.With("module", "session") }
}

// WithOnChange registers a hook called with every new state. It runs
// outside the controller lock and may call State but not block for long.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithTicker replaces the one-second cooldown tick source.
func WithTicker(fn TickerFunc) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// Controller is the session flow of one user agent. It is safe for use
// from several goroutines, but only one request runs at a time.
type Controller struct {
	svc       identity.Service
	settings  identity.SettingsStore
	logger    logging.Logger
	onChange  func(State)
	newTicker TickerFunc

	bootstrap       string
	defaultCooldown int

	mu             sync.Mutex
	started        bool
	gen            uint64
	cooldown       int
	step           Step
	email          string
	err            error
	remaining      int
	rescueEligible bool
	recovering     bool
	allowCreate    bool
	busy           bool
	user           *identity.User
	rescue         bool

	stopTick func()
	tickGen  uint64

	cancelObserve context.CancelFunc
	observeDone   chan struct{}
}

// New builds a controller in StepEmailEntry. settings may be nil, in which
// case the configured default cooldown is used.
func New(svc identity.Service, settings identity.SettingsStore, cfg Config, opts ...Option) *Controller {
	def := cfg.DefaultResendCooldown
	if def <= 0 {
		def = DefaultResendCooldown
	}
	c := &Controller{
		svc:             svc,
		settings:        settings,
		logger:          logging.Nop{},
		newTicker:       realTicker,
		bootstrap:       common.NormalizeEmail(cfg.BootstrapEmail),
		defaultCooldown: int(def / time.Second),
	}
	c.cooldown = c.defaultCooldown
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start reads the resend cooldown setting and subscribes to the session
// observation stream. It must be called once per controller.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	cooldown := c.loadCooldown(ctx)

	obsCtx, cancel := context.WithCancel(ctx)
	events, err := c.svc.ObserveSession(obsCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("observe session: %w", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.cooldown = cooldown
	c.cancelObserve = cancel
	c.observeDone = done
	c.mu.Unlock()

	go c.observe(obsCtx, events, done)

	c.logger.Info(ctx, "session flow started", "resend_cooldown", cooldown)
	return nil
}

func (c *Controller) loadCooldown(ctx context.Context) int {
	if c.settings == nil {
		return c.defaultCooldown
	}
	v, err := c.settings.GetSetting(ctx, common.ResendCooldownSettingKey)
	if err != nil {
		if !errors.Is(err, identity.ErrNotFound) {
			c.logger.Warn(ctx, "resend cooldown setting unavailable", "error", err)
		}
		return c.defaultCooldown
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		c.logger.Warn(ctx, "ignoring malformed resend cooldown setting", "value", v)
		return c.defaultCooldown
	}
	return n
}

func (c *Controller) observe(ctx context.Context, events <-chan identity.SessionEvent, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				c.logger.Warn(ctx, "session observation closed, sign-ins completed elsewhere will not be picked up")
				return
			}
			c.applySession(ctx, ev)
		}
	}
}

// applySession is the redirect-on-session policy. It runs on every
// observation, not only the first one. A rescue session ignores all
// observations, recovery ones included: it has no service session.
func (c *Controller) applySession(ctx context.Context, ev identity.SessionEvent) {
	c.mu.Lock()
	if c.rescue {
		c.mu.Unlock()
		return
	}
	from := c.step
	if ev.User == nil {
		if c.user == nil {
			c.mu.Unlock()
			return
		}
		c.resetLocked()
	} else {
		c.routeLocked(ev.User, ev.Recovery)
	}
	st := c.snapshotLocked()
	c.mu.Unlock()

	if from != st.Step {
		c.logger.Info(ctx, "session observed", "from", from, "to", st.Step)
	}
	c.notify(st)
}

// routeLocked selects the post-authentication step for u.
func (c *Controller) routeLocked(u *identity.User, recovery bool) {
	cp := *u
	c.user = &cp
	if u.Email != "" {
		c.email = common.NormalizeEmail(u.Email)
	}
	c.err = nil
	c.rescueEligible = false
	c.stopTickLocked()
	c.remaining = 0

	switch {
	case recovery || c.recovering:
		c.step = StepPasswordReset
	case u.PasswordSet:
		c.step = StepAuthenticated
	default:
		c.step = StepProfileCompletion
	}
}

// SubmitEmail checks the email with the service and moves to password
// entry or code verification, sending a code in the latter case.
func (c *Controller) SubmitEmail(ctx context.Context, email string) error {
	email = common.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return c.reject(StepEmailEntry, err)
	}

	gen, err := c.begin(StepEmailEntry, func() {
		c.email = email
		c.rescueEligible = false
	})
	if err != nil {
		return err
	}

	status, err := c.svc.CheckStatus(ctx, email)
	if err != nil {
		return c.finish(ctx, gen, StepEmailEntry, func() error { return classify(err) })
	}

	bootstrap := c.isBootstrap(email)
	var allowCreate bool
	switch {
	case status.Exists && status.PasswordSet:
		return c.finish(ctx, gen, StepEmailEntry, func() error {
			c.step = StepPasswordEntry
			return nil
		})
	case !status.Exists && bootstrap:
		allowCreate = true
	case !status.Exists && !status.Invited:
		return c.finish(ctx, gen, StepEmailEntry, func() error { return ErrNoAccess })
	default:
		allowCreate = !status.Exists
	}

	if !c.current(gen, StepEmailEntry) {
		return c.superseded(gen)
	}

	sendErr := c.svc.SendOneTimeCode(ctx, email, allowCreate)
	return c.finish(ctx, gen, StepEmailEntry, func() error {
		if sendErr != nil {
			return c.sendFailureLocked(ctx, sendErr)
		}
		c.allowCreate = allowCreate
		c.step = StepCodeVerification
		c.startCooldownLocked()
		return nil
	})
}

// SubmitPassword signs in with the email entered earlier.
func (c *Controller) SubmitPassword(ctx context.Context, password string) error {
	if password == "" {
		return c.reject(StepPasswordEntry, ErrPasswordRequired)
	}

	gen, err := c.begin(StepPasswordEntry, nil)
	if err != nil {
		return err
	}
	email := c.currentEmail()

	user, err := c.svc.SignInWithPassword(ctx, email, password)
	return c.finish(ctx, gen, StepPasswordEntry, func() error {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			return ErrInvalidPassword
		case err != nil:
			return classify(err)
		case user == nil:
			return fmt.Errorf("%w: sign-in returned no user", ErrService)
		}
		c.routeLocked(user, false)
		return nil
	})
}

// ForgotPassword sends a recovery code and moves to code verification.
// After verification the flow asks for a new password.
func (c *Controller) ForgotPassword(ctx context.Context) error {
	gen, err := c.begin(StepPasswordEntry, nil)
	if err != nil {
		return err
	}
	email := c.currentEmail()

	sendErr := c.svc.SendOneTimeCode(ctx, email, false)
	return c.finish(ctx, gen, StepPasswordEntry, func() error {
		if sendErr != nil {
			return c.sendFailureLocked(ctx, sendErr)
		}
		c.recovering = true
		c.allowCreate = false
		c.step = StepCodeVerification
		c.startCooldownLocked()
		return nil
	})
}

// SubmitCode verifies a one-time code. The resulting session is routed by
// the redirect policy.
func (c *Controller) SubmitCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.reject(StepCodeVerification, ErrCodeRequired)
	}

	gen, err := c.begin(StepCodeVerification, nil)
	if err != nil {
		return err
	}
	email := c.currentEmail()

	user, err := c.svc.VerifyOneTimeCode(ctx, email, code)
	return c.finish(ctx, gen, StepCodeVerification, func() error {
		switch {
		case errors.Is(err, identity.ErrInvalidCode), errors.Is(err, identity.ErrInvalidCredentials):
			return ErrInvalidCode
		case err != nil:
			return classify(err)
		}
		if user != nil {
			c.routeLocked(user, false)
		}
		return nil
	})
}

// Resend sends a new code when the cooldown has elapsed. It reports
// whether a code was sent; while the cooldown runs it does nothing.
func (c *Controller) Resend(ctx context.Context) (bool, error) {
	c.mu.Lock()
	switch {
	case c.step != StepCodeVerification:
		c.mu.Unlock()
		return false, ErrWrongStep
	case c.busy:
		c.mu.Unlock()
		return false, ErrBusy
	case c.remaining > 0:
		c.mu.Unlock()
		return false, nil
	}
	c.busy = true
	c.err = nil
	gen := c.gen
	email, allowCreate := c.email, c.allowCreate
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)

	sendErr := c.svc.SendOneTimeCode(ctx, email, allowCreate)
	err := c.finish(ctx, gen, StepCodeVerification, func() error {
		if sendErr != nil {
			return c.sendFailureLocked(ctx, sendErr)
		}
		c.startCooldownLocked()
		return nil
	})
	return err == nil && sendErr == nil, err
}

// CompleteProfile sets the display name and password of a user who signed
// in with a code and has no password yet.
func (c *Controller) CompleteProfile(ctx context.Context, fullName, password string) error {
	fullName = strings.TrimSpace(fullName)
	if err := validateFullName(fullName); err != nil {
		return c.reject(StepProfileCompletion, err)
	}
	if err := validateNewPassword(password); err != nil {
		return c.reject(StepProfileCompletion, err)
	}

	gen, err := c.begin(StepProfileCompletion, nil)
	if err != nil {
		return err
	}

	err = c.svc.SetPasswordAndProfile(ctx, password, fullName)
	return c.finish(ctx, gen, StepProfileCompletion, func() error {
		if err != nil {
			return classify(err)
		}
		c.user.FullName = fullName
		c.user.PasswordSet = true
		c.step = StepAuthenticated
		return nil
	})
}

// ResetPassword sets a new password during a recovery session.
func (c *Controller) ResetPassword(ctx context.Context, password string) error {
	if err := validateNewPassword(password); err != nil {
		return c.reject(StepPasswordReset, err)
	}

	gen, err := c.begin(StepPasswordReset, nil)
	if err != nil {
		return err
	}

	err = c.svc.UpdatePassword(ctx, password)
	return c.finish(ctx, gen, StepPasswordReset, func() error {
		if err != nil {
			return classify(err)
		}
		c.recovering = false
		c.user.PasswordSet = true
		c.step = StepAuthenticated
		return nil
	})
}

// EnterRescueMode opens a local super-admin session without contacting the
// service. It is only available to the bootstrap email after a failed code
// delivery.
func (c *Controller) EnterRescueMode() error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if !c.rescueEligible || !c.isBootstrap(c.email) {
		c.mu.Unlock()
		return ErrRescueUnavailable
	}

	c.gen++
	c.stopTickLocked()
	c.remaining = 0
	c.rescueEligible = false
	c.recovering = false
	c.err = nil
	c.rescue = true
	c.user = &identity.User{
		ID:    uuid.NewString(),
		Email: c.email,
		Role:  identity.RoleSuperAdmin,
	}
	c.step = StepAuthenticated
	st := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Warn(context.Background(), "rescue mode entered", "email", st.Email)
	c.notify(st)
	return nil
}

// Reset returns to StepEmailEntry, clearing the email, errors and cooldown.
// Responses of requests still in flight are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.resetLocked()
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
}

// Back is Reset under the name the presentation layer uses.
func (c *Controller) Back() {
	c.Reset()
}

// SignOut ends the session and resets the flow. Rescue sessions are local
// and end without a service call. The flow is reset even if the service
// call fails.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	remote := c.user != nil && !c.rescue
	c.mu.Unlock()

	var err error
	if remote {
		if err = c.svc.SignOut(ctx); err != nil {
			c.logger.Warn(ctx, "sign out failed", "error", err)
			err = classify(err)
		}
	}
	c.Reset()
	return err
}

// State returns a snapshot of the flow.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the cooldown timer and the session subscription and waits
// for the observer to exit. Late responses are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.stopTickLocked()
	cancel, done := c.cancelObserve, c.observeDone
	c.cancelObserve = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Controller) resetLocked() {
	c.gen++
	c.stopTickLocked()
	c.step = StepEmailEntry
	c.email = ""
	c.err = nil
	c.remaining = 0
	c.rescueEligible = false
	c.recovering = false
	c.allowCreate = false
	c.busy = false
	c.user = nil
	c.rescue = false
}

// reject surfaces a local validation error without calling the service.
func (c *Controller) reject(step Step, err error) error {
	c.mu.Lock()
	if c.step != step {
		c.mu.Unlock()
		return ErrWrongStep
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.err = err
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
	return err
}

// begin marks a request as outstanding for step and returns the
// generation the response must match.
func (c *Controller) begin(step Step, prep func()) (uint64, error) {
	c.mu.Lock()
	if c.step != step {
		c.mu.Unlock()
		return 0, ErrWrongStep
	}
	if c.busy {
		c.mu.Unlock()
		return 0, ErrBusy
	}
	c.busy = true
	c.err = nil
	if prep != nil {
		prep()
	}
	gen := c.gen
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
	return gen, nil
}

// finish applies the outcome of a request started with begin. A response
// for an older generation is dropped. When the step changed meanwhile the
// session observation already moved the flow on and the response is
// superseded.
func (c *Controller) finish(ctx context.Context, gen uint64, step Step, apply func() error) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrFlowReset
	}
	c.busy = false
	if c.step != step {
		st := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(st)
		return nil
	}

	err := apply()
	c.err = err
	st := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Info(ctx, "step failed", "step", step, "kind", KindOf(err), "error", err)
	} else if st.Step != step {
		c.logger.Info(ctx, "step changed", "from", step, "to", st.Step)
	}
	c.notify(st)
	return err
}

// current reports whether a multi-call request may continue.
func (c *Controller) current(gen uint64, step Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.step == step
}

// superseded ends a request that current reported as stale.
func (c *Controller) superseded(gen uint64) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrFlowReset
	}
	c.busy = false
	st := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(st)
	return nil
}

func (c *Controller) currentEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.email
}

func (c *Controller) isBootstrap(email string) bool {
	return c.bootstrap != "" && email == c.bootstrap
}

// classify maps a service failure. Nothing is retried.
func classify(err error) error {
	switch {
	case identity.IsRateLimited(err):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case errors.Is(err, identity.ErrValidation):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrService, err)
	}
}

// sendFailureLocked handles a failed code delivery. For the bootstrap
// email it unlocks rescue mode.
func (c *Controller) sendFailureLocked(ctx context.Context, err error) error {
	if c.isBootstrap(c.email) {
		c.rescueEligible = true
		c.logger.Warn(ctx, "code delivery failed for bootstrap email, rescue available", "rate_limited", identity.IsRateLimited(err))
	}
	return classify(err)
}

// startCooldownLocked resets the countdown to the configured duration and
// makes sure a ticker is running.
func (c *Controller) startCooldownLocked() {
	c.remaining = c.cooldown
	if c.remaining <= 0 || c.stopTick != nil {
		return
	}

	ticks, stop := c.newTicker(time.Second)
	c.tickGen++
	id := c.tickGen
	done := make(chan struct{})
	c.stopTick = func() {
		close(done)
		stop()
	}
	go c.countdown(id, ticks, done)
}

func (c *Controller) stopTickLocked() {
	if c.stopTick != nil {
		c.stopTick()
		c.stopTick = nil
	}
	c.tickGen++
}

func (c *Controller) countdown(id uint64, ticks <-chan time.Time, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticks:
			c.mu.Lock()
			if c.tickGen != id {
				c.mu.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			finished := c.remaining == 0
			if finished {
				c.stopTickLocked()
			}
			st := c.snapshotLocked()
			c.mu.Unlock()

			c.notify(st)
			if finished {
				return
			}
		}
	}
}

func (c *Controller) snapshotLocked() State {
	st := State{
		Step:           c.step,
		Email:          c.email,
		Err:            c.err,
		ResendCooldown: c.remaining,
		RescueEligible: c.rescueEligible,
		Processing:     c.busy,
		Rescue:         c.rescue,
	}
	if c.user != nil {
		u := *c.user
		st.User = &u
	}
	return st
}

func (c *Controller) notify(st State) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
