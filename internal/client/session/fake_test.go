package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/stretchr/testify/require"
)

const bootstrapEmail = "root@lms.test"

type sendCall struct {
	email       string
	allowCreate bool
}

// fakeIdentity is an in-memory identity.Service for controller tests.
type fakeIdentity struct {
	mu sync.Mutex

	statuses  map[string]identity.UserStatus
	statusErr error
	// gate, when set, blocks CheckStatus until closed.
	gate chan struct{}

	passwords map[string]string
	users     map[string]*identity.User
	signInErr error

	codes     map[string]string
	sendErr   error
	verifyErr error

	profileErr error
	updateErr  error
	signOutErr error

	events chan identity.SessionEvent

	calls        []string
	sends        []sendCall
	profileName  string
	profilePass  string
	updatedPass  string
	signOutCalls int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		statuses:  map[string]identity.UserStatus{},
		passwords: map[string]string{},
		users:     map[string]*identity.User{},
		codes:     map[string]string{},
		events:    make(chan identity.SessionEvent),
	}
}

func (f *fakeIdentity) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeIdentity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeIdentity) sendCalls() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendCall(nil), f.sends...)
}

func (f *fakeIdentity) CheckStatus(ctx context.Context, email string) (identity.UserStatus, error) {
	f.record("CheckStatus")
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return identity.UserStatus{}, ctx.Err()
		}
	}
	if f.statusErr != nil {
		return identity.UserStatus{}, f.statusErr
	}
	return f.statuses[email], nil
}

func (f *fakeIdentity) SignInWithPassword(_ context.Context, email, password string) (*identity.User, error) {
	f.record("SignInWithPassword")
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if f.passwords[email] != password {
		return nil, identity.ErrInvalidCredentials
	}
	return f.users[email], nil
}

func (f *fakeIdentity) SendOneTimeCode(_ context.Context, email string, allowCreate bool) error {
	f.record("SendOneTimeCode")
	f.mu.Lock()
	f.sends = append(f.sends, sendCall{email: email, allowCreate: allowCreate})
	f.mu.Unlock()
	return f.sendErr
}

func (f *fakeIdentity) VerifyOneTimeCode(_ context.Context, email, code string) (*identity.User, error) {
	f.record("VerifyOneTimeCode")
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if want, ok := f.codes[email]; !ok || want != code {
		return nil, identity.ErrInvalidCode
	}
	return f.users[email], nil
}

func (f *fakeIdentity) SetPasswordAndProfile(_ context.Context, password, fullName string) error {
	f.record("SetPasswordAndProfile")
	f.profilePass, f.profileName = password, fullName
	return f.profileErr
}

func (f *fakeIdentity) UpdatePassword(_ context.Context, password string) error {
	f.record("UpdatePassword")
	f.updatedPass = password
	return f.updateErr
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.record("SignOut")
	f.signOutCalls++
	return f.signOutErr
}

func (f *fakeIdentity) ObserveSession(context.Context) (<-chan identity.SessionEvent, error) {
	return f.events, nil
}

// publish emits a session observation and fails the test if nobody listens.
func (f *fakeIdentity) publish(t *testing.T, ev identity.SessionEvent) {
	t.Helper()
	select {
	case f.events <- ev:
	case <-time.After(2 * time.Second):
		t.Fatal("session observation not consumed")
	}
}

type fakeSettings struct {
	value string
	err   error
	keys  []string
}

func (s *fakeSettings) GetSetting(_ context.Context, key string) (string, error) {
	s.keys = append(s.keys, key)
	return s.value, s.err
}

// manualTicks hands out tickers driven by the test.
type manualTicks struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicks) newTicker(time.Duration) (<-chan time.Time, func()) {
	mt := &manualTicker{ch: make(chan time.Time)}
	m.mu.Lock()
	m.tickers = append(m.tickers, mt)
	m.mu.Unlock()
	return mt.ch, func() {
		mt.mu.Lock()
		mt.stopped = true
		mt.mu.Unlock()
	}
}

func (m *manualTicks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

func (m *manualTicks) last(t *testing.T) *manualTicker {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.tickers, "no ticker started")
	return m.tickers[len(m.tickers)-1]
}

func (mt *manualTicker) isStopped() bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.stopped
}

// tick delivers one tick; it fails if the countdown goroutine is gone.
func (mt *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case mt.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("tick not consumed")
	}
}

type harness struct {
	ctrl     *Controller
	svc      *fakeIdentity
	ticks    *manualTicks
	settings *fakeSettings
}

func newHarness(t *testing.T, settings *fakeSettings, opts ...Option) *harness {
	t.Helper()
	svc := newFakeIdentity()
	ticks := &manualTicks{}

	var store identity.SettingsStore
	if settings != nil {
		store = settings
	}

	opts = append([]Option{WithTicker(ticks.newTicker)}, opts...)
	ctrl := New(svc, store, Config{BootstrapEmail: bootstrapEmail}, opts...)
	require.NoError(t, ctrl.Start(context.Background()))
	t.Cleanup(ctrl.Close)

	return &harness{ctrl: ctrl, svc: svc, ticks: ticks, settings: settings}
}

// toCodeVerification walks an invited email to the code step.
func (h *harness) toCodeVerification(t *testing.T, email string) {
	t.Helper()
	h.svc.statuses[email] = identity.UserStatus{Invited: true}
	require.NoError(t, h.ctrl.SubmitEmail(context.Background(), email))
	require.Equal(t, StepCodeVerification, h.ctrl.State().Step)
}

func waitStep(t *testing.T, c *Controller, want Step) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State().Step == want },
		2*time.Second, 5*time.Millisecond, "step never became %s (now %s)", want, c.State().Step)
}

func waitCooldown(t *testing.T, c *Controller, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State().ResendCooldown == want },
		2*time.Second, 5*time.Millisecond, "cooldown never became %d (now %d)", want, c.State().ResendCooldown)
}
