package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("service unavailable")
)

// ServiceError is a failure reported by the service that has no dedicated
// sentinel. Code follows HTTP status semantics.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity service error (%d)", e.Code)
	}
	return fmt.Sprintf("identity service error (%d): %s", e.Code, e.Message)
}

// rateLimitMarkers are fragments of the provider's throttling messages.
var rateLimitMarkers = []string{
	"rate limit",
	"too many requests",
	"confirmation email",
	"security purposes",
}

// IsRateLimited reports whether err means the service refused the request
// because of its quota: a status code of 429, or a message containing one
// of the known throttling fragments.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
