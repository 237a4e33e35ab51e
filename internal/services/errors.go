package services

import "errors"

// Eligibility and capacity errors are expected user-facing outcomes: they
// are surfaced to the caller, never retried, and never logged as faults.
var (
	ErrQueueLocked         = errors.New("failed to join queue because it is locked")
	ErrQueueFull           = errors.New("failed to join queue because it is full")
	ErrNotOnWhitelist      = errors.New("failed to join queue because you are not on the queue whitelist")
	ErrOnBlacklist         = errors.New("failed to join queue because you are on the queue blacklist")
	ErrInsufficientMembers = errors.New("not enough members to pull")

	ErrQueueNotFound    = errors.New("queue not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrDisplayNotFound  = errors.New("display not found")
	ErrQueueExists      = errors.New("queue already exists")
	ErrEntryExists      = errors.New("entry already exists")
	ErrInvalidCron      = errors.New("invalid cron schedule")
	ErrInvalidBatchSize = errors.New("pull batch size must be positive")
)

// Surface transport failures, mapped by the platform adapter.
var (
	// ErrSurfaceForbidden means the bot can no longer post to a channel.
	// The pusher reacts by deregistering the display.
	ErrSurfaceForbidden = errors.New("cannot post to channel")
	// ErrMessageNotFound means a previously pushed message no longer exists.
	ErrMessageNotFound = errors.New("message not found")
	// ErrIdentityNotFound means a user could not be resolved in the guild;
	// the member is treated as vanished and removed.
	ErrIdentityNotFound = errors.New("identity not found")
)
