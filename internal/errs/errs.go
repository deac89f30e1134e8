package errs

import "errors"

// Sentinel errors mapped to WebSocket close reasons / HTTP codes at the boundary.
var (
	ErrTokenRequired      = errors.New("authentication token required")
	ErrNotGroupMember     = errors.New("you are not a member of this group")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrAuthUnavailable    = errors.New("authentication service unavailable")
	ErrMessageTextMissing = errors.New("message text is required")
)
