package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/dmitrijs2005/lmsgate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lmsgate/internal/client/storage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	pingErr  error
	closeErr error
	pings    int
	closed   bool
}

func (f *fakeRemote) Ping(context.Context) error {
	f.pings++
	return f.pingErr
}

func (f *fakeRemote) Close() error {
	f.closed = true
	return f.closeErr
}

func setupRepo(t *testing.T) metadata.Repository {
	t.Helper()
	repos, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })
	return repos.Metadata
}

func TestAccount_RememberThenCurrent(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(&fakeRemote{}, setupRepo(t))

	u := identity.User{ID: "u-1", Email: "ada@x.com", Role: identity.RoleInstructor, FullName: "Ada", PasswordSet: true}
	require.NoError(t, svc.Remember(ctx, u, false))

	acc, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(&Account{User: u}, acc))
}

func TestAccount_RememberReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(&fakeRemote{}, setupRepo(t))

	require.NoError(t, svc.Remember(ctx, identity.User{ID: "u-1", Email: "a@x.com", Role: identity.RoleStudent, FullName: "A"}, false))
	rescue := identity.User{ID: "r-1", Email: "root@lms.test", Role: identity.RoleSuperAdmin}
	require.NoError(t, svc.Remember(ctx, rescue, true))

	acc, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, rescue, acc.User)
	assert.True(t, acc.Rescue)
}

func TestAccount_RememberRequiresID(t *testing.T) {
	svc := NewAccountService(&fakeRemote{}, setupRepo(t))
	require.Error(t, svc.Remember(context.Background(), identity.User{Email: "a@x.com"}, false))
}

func TestAccount_CurrentWithoutAccount(t *testing.T) {
	svc := NewAccountService(&fakeRemote{}, setupRepo(t))

	_, err := svc.Current(context.Background())
	require.ErrorIs(t, err, ErrNoAccount)
}

func TestAccount_CurrentWithCorruptRole(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	require.NoError(t, repo.SetMany(ctx, map[string]string{"user.id": "u-1", "user.role": "janitor"}))

	_, err := NewAccountService(&fakeRemote{}, repo).Current(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAccount)
}

func TestAccount_Forget(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(&fakeRemote{}, setupRepo(t))

	require.NoError(t, svc.Remember(ctx, identity.User{ID: "u-1", Role: identity.RoleAdmin}, false))
	require.NoError(t, svc.Forget(ctx))

	_, err := svc.Current(ctx)
	require.ErrorIs(t, err, ErrNoAccount)
}

func TestAccount_ForgetKeepsOtherMetadata(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo(t)
	require.NoError(t, repo.SetMany(ctx, map[string]string{"ui.theme": "dark"}))
	svc := NewAccountService(&fakeRemote{}, repo)

	require.NoError(t, svc.Remember(ctx, identity.User{ID: "u-1", Email: "a@x.com", Role: identity.RoleStudent}, true))
	require.NoError(t, svc.Forget(ctx))

	m, err := repo.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ui.theme": "dark"}, m)
}

func TestAccount_PingAndClose(t *testing.T) {
	remote := &fakeRemote{pingErr: errors.New("down"), closeErr: errors.New("close")}
	svc := NewAccountService(remote, setupRepo(t))

	require.EqualError(t, svc.Ping(context.Background()), "down")
	assert.Equal(t, 1, remote.pings)

	require.EqualError(t, svc.Close(context.Background()), "close")
	assert.True(t, remote.closed)
}
