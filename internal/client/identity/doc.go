// Package identity is the client side of the Identity & Profile Service,
// the external system of record for credentials, one-time codes, sessions
// and user profiles.
//
// # Overview
//
// The package provides:
//  1. The Service contract the session flow consumes (status lookup,
//     password sign-in, one-time codes, profile completion, sign-out and a
//     session observation stream) and the SettingsStore used for remote
//     key/value settings.
//  2. Domain types shared with the flow: User, Role, UserStatus,
//     SessionEvent.
//  3. A gRPC implementation (GRPCClient). Messages are google.protobuf.Struct
//     values, session tokens are JWTs whose claims carry the user profile.
//
// # Error Handling
//
// Failures are reported as sentinel errors matched with errors.Is
// (ErrInvalidCredentials, ErrInvalidCode, ErrValidation, ErrNotFound,
// ErrUnavailable) or as *ServiceError carrying a status code. IsRateLimited
// tells whether the service refused because of its request quota.
package identity
