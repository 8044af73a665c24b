package internaldefs

import (
	authcore "github.com/authcore-dev/authcore"
)

// CounterDef defines a public type used by authcore APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricMFAChallengeIssued, Name: "authcore_mfa_challenge_issued_total", Help: "Login flows requiring MFA step-up."},
	{ID: authcore.MetricMFASuccess, Name: "authcore_mfa_success_total", Help: "Successful MFA confirmations."},
	{ID: authcore.MetricMFAFailure, Name: "authcore_mfa_failure_total", Help: "Failed MFA confirmations."},
	{ID: authcore.MetricTrustedDeviceBypass, Name: "authcore_trusted_device_bypass_total", Help: "MFA step-ups skipped via trusted device tokens."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshRotationLost, Name: "authcore_refresh_rotation_lost_total", Help: "Refresh attempts that lost the rotation race or replayed a rotated token."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Created sessions."},
	{ID: authcore.MetricSessionEvicted, Name: "authcore_session_evicted_total", Help: "Sessions evicted by the per-user cap."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Sessions revoked by user or admin action."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logout operations."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Successful signups."},
	{ID: authcore.MetricSignupDuplicate, Name: "authcore_signup_duplicate_total", Help: "Signup attempts rejected as duplicate."},
	{ID: authcore.MetricPasswordChanged, Name: "authcore_password_changed_total", Help: "Successful password changes."},
	{ID: authcore.MetricPasswordResetRequested, Name: "authcore_password_reset_requested_total", Help: "Password reset requests."},
	{ID: authcore.MetricPasswordResetConfirmed, Name: "authcore_password_reset_confirmed_total", Help: "Confirmed password resets."},
	{ID: authcore.MetricOTPIssued, Name: "authcore_otp_issued_total", Help: "Issued one-time codes."},
	{ID: authcore.MetricOTPConsumed, Name: "authcore_otp_consumed_total", Help: "Consumed one-time codes."},
	{ID: authcore.MetricOTPRejected, Name: "authcore_otp_rejected_total", Help: "Rejected one-time code attempts."},
}
