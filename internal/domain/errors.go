/**
 * @description
 * Error taxonomy for the confirmation service.
 */
package domain

import "errors"

var (
	// ErrUnknownAccount is returned when no account matches the requested
	// username or id, or the account is the guest placeholder.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidConfirmationData is returned for a malformed confirmation
	// link or a secret that does not match the stored one.
	ErrInvalidConfirmationData = errors.New("invalid confirmation data")

	// ErrInsufficientBalance is returned when a debit fails at commit time
	// despite an earlier qualifying balance read.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConfigurationError marks a criterion value with no matching
	// branch. It is administrator-visible and never silently defaulted.
	ErrConfigurationError = errors.New("confirmation criteria misconfigured")

	// ErrNotificationFailure is returned when the confirmation email could
	// not be dispatched. State already committed stays committed.
	ErrNotificationFailure = errors.New("failed to send confirmation email")

	// ErrAccountSuspended rejects suspended accounts before evaluation.
	ErrAccountSuspended = errors.New("account suspended")
)
