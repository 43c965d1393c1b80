// Package common contains shared constants and helpers used across lmsgate.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "authorization"

// ResendCooldownSettingKey names the remote setting that holds the one-time
// code resend cooldown, in seconds.
const ResendCooldownSettingKey = "otp_resend_cooldown_seconds"

// Local metadata keys for the signed-in profile. All share MetaUserPrefix.
const (
	MetaUserPrefix      = "user."
	MetaUserID          = "user.id"
	MetaUserEmail       = "user.email"
	MetaUserRole        = "user.role"
	MetaUserFullName    = "user.full_name"
	MetaUserPasswordSet = "user.password_set"
	MetaUserRescue      = "user.rescue"
)
