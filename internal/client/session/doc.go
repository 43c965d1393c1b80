// Package session drives a user through sign-in: email check, password or
// one-time code, first-access profile completion and password recovery.
//
// The Controller owns a single flow. Credentials, codes and sessions live in
// the Identity & Profile Service (see package identity); the controller only
// sequences the calls, surfaces errors to the current step and reacts to the
// session observation stream, which can move the flow forward out of band
// (for example when a magic link is opened elsewhere).
//
// A designated bootstrap email may provision itself through a one-time code
// and, after an observed delivery failure, enter a local rescue session that
// bypasses the service.
package session
