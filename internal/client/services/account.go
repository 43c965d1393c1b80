// Package services contains application services for the lmsgate client.
// The account service keeps the profile of the signed-in user in the local
// database so the CLI can show it, and proxies liveness checks to the
// identity service.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
	"github.com/dmitrijs2005/lmsgate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/lmsgate/internal/common"
)

var ErrNoAccount = errors.New("no signed-in account stored locally")

// Remote is the part of the identity client the account service needs.
type Remote interface {
	Ping(ctx context.Context) error
	Close() error
}

// Account is the locally stored profile.
type Account struct {
	User   identity.User
	Rescue bool
}

// AccountService defines account housekeeping operations for the CLI.
//
// Contract:
//   - Remember: persist the profile of a user who completed the flow.
//   - Current: load the stored profile, or ErrNoAccount.
//   - Forget: wipe the stored profile (e.g., on logout).
//   - Ping: check identity service liveness.
//   - Close: release underlying client resources.
type AccountService interface {
	Remember(ctx context.Context, u identity.User, rescue bool) error
	Current(ctx context.Context) (*Account, error)
	Forget(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type accountService struct {
	remote Remote
	repo   metadata.Repository
}

// NewAccountService constructs an AccountService over the given identity
// client and metadata repository.
func NewAccountService(remote Remote, repo metadata.Repository) AccountService {
	return &accountService{remote: remote, repo: repo}
}

// Remember replaces any stored profile with u in a single transaction.
func (s *accountService) Remember(ctx context.Context, u identity.User, rescue bool) error {
	if u.ID == "" {
		return fmt.Errorf("remember account: empty user id")
	}
	values := map[string]string{
		common.MetaUserID:          u.ID,
		common.MetaUserEmail:       u.Email,
		common.MetaUserRole:        u.Role.String(),
		common.MetaUserFullName:    u.FullName,
		common.MetaUserPasswordSet: strconv.FormatBool(u.PasswordSet),
		common.MetaUserRescue:      strconv.FormatBool(rescue),
	}
	if err := s.repo.SetMany(ctx, values); err != nil {
		return fmt.Errorf("remember account: %w", err)
	}
	return nil
}

func (s *accountService) Current(ctx context.Context) (*Account, error) {
	id, err := s.repo.Get(ctx, common.MetaUserID)
	if errors.Is(err, metadata.ErrNotFound) || (err == nil && id == "") {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	m, err := s.repo.List(ctx, common.MetaUserPrefix)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	role, err := identity.ParseRole(m[common.MetaUserRole])
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	acc := &Account{
		User: identity.User{
			ID:       id,
			Email:    m[common.MetaUserEmail],
			Role:     role,
			FullName: m[common.MetaUserFullName],
		},
	}
	acc.User.PasswordSet, _ = strconv.ParseBool(m[common.MetaUserPasswordSet])
	acc.Rescue, _ = strconv.ParseBool(m[common.MetaUserRescue])
	return acc, nil
}

// Forget removes the stored profile keys. Other metadata is kept. The id
// goes first so a partial failure never leaves a loadable profile.
func (s *accountService) Forget(ctx context.Context) error {
	if err := s.repo.Delete(ctx, common.MetaUserID); err != nil {
		return fmt.Errorf("forget account: %w", err)
	}
	m, err := s.repo.List(ctx, common.MetaUserPrefix)
	if err != nil {
		return fmt.Errorf("forget account: %w", err)
	}
	for k := range m {
		if err := s.repo.Delete(ctx, k); err != nil {
			return fmt.Errorf("forget account: %w", err)
		}
	}
	return nil
}

// Ping proxies a liveness check to the identity service.
func (s *accountService) Ping(ctx context.Context) error {
	return s.remote.Ping(ctx)
}

func (s *accountService) Close(ctx context.Context) error {
	return s.remote.Close()
}
