package bot

import (
	"errors"
	"fmt"
)

// ErrPermission is returned when a non-admin invokes an admin-only command.
var ErrPermission = errors.New("permission denied")

// usageError reports a missing argument.
type usageError struct {
	usage string
}

func (e *usageError) Error() string { return "missing required argument: " + e.usage }

// argError reports an argument that could not be parsed.
type argError struct {
	arg string
}

func (e *argError) Error() string { return fmt.Sprintf("invalid argument %q", e.arg) }

// cooldownError reports a rate-limited invocation.
type cooldownError struct {
	retryAfter float64
}

func (e *cooldownError) Error() string {
	return fmt.Sprintf("on cooldown for %.2fs", e.retryAfter)
}
