package admission

import "errors"

var (
	// ErrInvalidIP rejects an administrative call with a malformed address.
	ErrInvalidIP = errors.New("admission: invalid ip address")
	// ErrInvalidExpiry rejects a negative manual block expiry.
	ErrInvalidExpiry = errors.New("admission: invalid expiry")
	// ErrStoreUnavailable wraps failures of the block store.
	ErrStoreUnavailable = errors.New("admission: block store unavailable")
)
