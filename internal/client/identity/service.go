package identity

import "context"

// Service is the narrow surface of the Identity & Profile Service used by
// the session flow. All methods honor context cancellation.
//
// SignInWithPassword and VerifyOneTimeCode return the user of the session
// they establish; the same session is also published on the observation
// stream.
type Service interface {
	CheckStatus(ctx context.Context, email string) (UserStatus, error)
	SignInWithPassword(ctx context.Context, email, password string) (*User, error)
	SendOneTimeCode(ctx context.Context, email string, allowCreate bool) error
	VerifyOneTimeCode(ctx context.Context, email, code string) (*User, error)
	SetPasswordAndProfile(ctx context.Context, password, fullName string) error
	UpdatePassword(ctx context.Context, password string) error
	SignOut(ctx context.Context) error

	// ObserveSession subscribes to session changes. The channel is closed
	// when ctx is cancelled or the stream ends; cancelling ctx unsubscribes.
	ObserveSession(ctx context.Context) (<-chan SessionEvent, error)
}

// SettingsStore reads the remote key/value settings store. A missing key
// is reported as ErrNotFound.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
}
