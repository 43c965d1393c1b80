package session

import (
	"errors"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
)

var (
	// Local validation.
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordRequired = errors.New("password is required")
	ErrCodeRequired     = errors.New("code is required")
	ErrNameTooShort     = errors.New("name must be at least 2 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")

	// Access and credentials.
	ErrNoAccess        = errors.New("no access: this email is neither registered nor invited")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidCode     = errors.New("invalid or expired code")

	// Service failures.
	ErrRateLimited = errors.New("too many requests, try again later")
	ErrService     = errors.New("identity service error")

	// Flow control.
	ErrBusy              = errors.New("a request is already in progress")
	ErrFlowReset         = errors.New("flow was reset while the request was in flight")
	ErrWrongStep         = errors.New("action is not available in the current step")
	ErrRescueUnavailable = errors.New("rescue mode is not available")
	ErrAlreadyStarted    = errors.New("flow already started")
)

// ErrorKind groups flow errors by how the user can recover from them.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	// KindValidation is rejected locally or by the service's validation.
	KindValidation
	// KindAccessDenied is terminal for the current email.
	KindAccessDenied
	// KindCredentials can be retried in place.
	KindCredentials
	// KindRateLimited should be retried only after waiting.
	KindRateLimited
	// KindService is a transient service failure.
	KindService
	// KindFlow is misuse of the flow (busy, wrong step, reset).
	KindFlow
)

// KindOf classifies an error returned by the controller.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrCodeRequired), errors.Is(err, ErrNameTooShort),
		errors.Is(err, ErrPasswordTooShort), errors.Is(err, identity.ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNoAccess):
		return KindAccessDenied
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrInvalidCode):
		return KindCredentials
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrBusy), errors.Is(err, ErrFlowReset),
		errors.Is(err, ErrWrongStep), errors.Is(err, ErrRescueUnavailable),
		errors.Is(err, ErrAlreadyStarted):
		return KindFlow
	default:
		return KindService
	}
}
