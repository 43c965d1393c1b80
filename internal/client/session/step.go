package session

import (
	"fmt"

	"github.com/dmitrijs2005/lmsgate/internal/client/identity"
)

// Step is the active state of the flow.
type Step uint8

const (
	// StepEmailEntry is the initial state.
	StepEmailEntry Step = iota
	StepPasswordEntry
	StepCodeVerification
	StepProfileCompletion
	StepPasswordReset
	// StepAuthenticated means the flow exited with a fully provisioned session.
	StepAuthenticated
)

var stepNames = [...]string{
	StepEmailEntry:        "email_entry",
	StepPasswordEntry:     "password_entry",
	StepCodeVerification:  "code_verification",
	StepProfileCompletion: "profile_completion",
	StepPasswordReset:     "password_reset",
	StepAuthenticated:     "authenticated",
}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", uint8(s))
}

// Unauthenticated reports whether no session exists yet in this step.
func (s Step) Unauthenticated() bool {
	return s <= StepCodeVerification
}

// State is a snapshot of the flow.
type State struct {
	Step  Step
	Email string
	// Err is the error surfaced to the current step, if any.
	Err error
	// ResendCooldown is the number of seconds until a code can be resent.
	ResendCooldown int
	// RescueEligible is set after a code delivery failure for the
	// bootstrap email.
	RescueEligible bool
	// Processing is set while a request to the service is outstanding.
	Processing bool
	// User is set once a session exists.
	User *identity.User
	// Rescue marks a local emergency session.
	Rescue bool
}

func (s State) Authenticated() bool {
	return s.Step == StepAuthenticated
}

// Landing names the dashboard section opened for a signed-in role.
func Landing(r identity.Role) string {
	switch r {
	case identity.RoleSuperAdmin, identity.RoleAdmin:
		return "dashboard"
	case identity.RoleInstructor:
		return "dashboard/classes"
	case identity.RoleStudent:
		return "courses"
	default:
		return ""
	}
}
