package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Services wrap these
// so the HTTP boundary can map them to status codes without leaking
// infrastructure details.
var (
	// ErrEmailExists: a verified account already holds this email.
	ErrEmailExists = errors.New("email already exists")

	// ErrBadRequest: missing or malformed input.
	ErrBadRequest = errors.New("bad request")

	// ErrOTPExpired: no live challenge for the email (expired, consumed, or
	// never issued).
	ErrOTPExpired = errors.New("otp expired or invalid")

	// ErrInvalidOTP: a live challenge exists but the submitted code does not
	// match. The challenge is not consumed.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrSessionExpired: the staged registration is gone; the client must
	// register again.
	ErrSessionExpired = errors.New("registration session expired")

	// ErrInvalidCredentials is deliberately shared between unknown-email and
	// wrong-password so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken: refresh token failed signature or expiry checks.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrAccountNotFound: token verified but the account no longer exists.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNotificationFailure: OTP delivery failed; the registration attempt
	// is aborted.
	ErrNotificationFailure = errors.New("failed to send otp email")
)
