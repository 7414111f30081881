package service

import "github.com/orientamada/orientamada/internal/apperr"

// Service errors; errors.Is matches on status and code / Erreurs des services
var (
	ErrUserNotFound       = apperr.NotFound("user_not_found", "user not found")
	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "invalid credentials")
	ErrEmailNotVerified   = apperr.Forbidden("email_not_verified", "email not verified")
	ErrAccountLocked      = apperr.Forbidden("account_locked", "account locked due to multiple failed login attempts")
	ErrSessionExpired     = apperr.Unauthorized("session_expired", "session expired, please log in again")
	ErrRefreshSuperseded  = apperr.Unauthorized("refresh_superseded", "session was refreshed by a concurrent request, retry with the current cookies")
	ErrInvalidEmail       = apperr.Unprocessable("invalid_email", "invalid email format")
	ErrWeakPassword       = apperr.Unprocessable("weak_password", "password does not meet strength requirements: must be at least 8 characters with uppercase, lowercase, digit, and special character")
	ErrInvalidOTP         = apperr.BadRequest("invalid_otp", "invalid or expired code")
	ErrOTPCooldown        = apperr.TooManyRequests("otp_cooldown", "a code was sent recently, please wait")
	ErrInvalidResetToken  = apperr.BadRequest("invalid_reset_token", "invalid or expired reset token")
	ErrWrongPassword      = apperr.BadRequest("wrong_password", "current password is incorrect")
	ErrPasswordReused     = apperr.BadRequest("password_reused", "new password must be different from current password")
	ErrPasswordlessUser   = apperr.BadRequest("no_password", "this account signs in with Google")
	ErrInvalidRole        = apperr.BadRequest("invalid_role", "invalid role")
	ErrForbidden          = apperr.Forbidden("forbidden", "insufficient permissions")
	ErrOAuthDisabled      = apperr.NotFound("oauth_disabled", "google sign-in is disabled")
	ErrOAuthFailed        = apperr.Unauthorized("oauth_failed", "google sign-in failed")
)
