package provision

import "errors"

var (
	// ErrNotRoot means the effective user on the target is not root.
	ErrNotRoot = errors.New("must run as root")

	// ErrOSMismatch means the target's os-release identity does not match
	// the required distribution.
	ErrOSMismatch = errors.New("unsupported operating system")
)
