package signatures

import "errors"

// Document-level failures reuse the documents package sentinels
// (documents.ErrNotFound, ErrConflict, ErrSignerNotFound,
// ErrSignerAlreadySigned); the errors below are specific to signature
// submission and completion.
var (
	// ErrInvalidInput covers malformed submissions: unknown method,
	// bad placement, missing or unusable image payload.
	ErrInvalidInput = errors.New("invalid signature input")
	// ErrTokenInvalid means the signing link is unknown, expired, or
	// already consumed.
	ErrTokenInvalid = errors.New("signing link is invalid or expired")
	// ErrIncomplete means completion was requested while signatures
	// are still outstanding.
	ErrIncomplete = errors.New("signatures still outstanding")
)
