package session

import "fmt"

// launchError covers failures before the session reaches Running: container
// start, socket wait timeout, resource contention. Busy failures are
// retryable by the caller; the supervisor never retries a launch itself.
type launchError struct {
	msg  string
	busy bool
}

func (e launchError) Error() string { return "launch: " + e.msg }

// ErrLaunch builds a non-retryable launch failure.
func ErrLaunch(format string, args ...any) error {
	return launchError{msg: fmt.Sprintf(format, args...)}
}

// ErrLaunchBusy builds a retryable launch failure (shared resource held).
func ErrLaunchBusy(format string, args ...any) error {
	return launchError{msg: fmt.Sprintf(format, args...), busy: true}
}

// IsLaunchError reports whether err occurred during session launch.
func IsLaunchError(err error) bool {
	_, ok := err.(launchError)
	return ok
}

// IsLaunchBusy reports whether err is a retryable busy-resource launch
// failure.
func IsLaunchBusy(err error) bool {
	le, ok := err.(launchError)
	return ok && le.busy
}

// pairingError covers endpoint-side pairing failures: unreachable endpoint
// or a response without a recognizable success marker. Never retried
// automatically.
type pairingError struct{ msg string }

func (e pairingError) Error() string { return "pairing: " + e.msg }

// ErrPairing builds a pairing failure.
func ErrPairing(format string, args ...any) error {
	return pairingError{msg: fmt.Sprintf(format, args...)}
}

// IsPairingError reports whether err came from the pairing workflow.
func IsPairingError(err error) bool {
	_, ok := err.(pairingError)
	return ok
}

// pinFormatError rejects a PIN before any network call is made.
type pinFormatError struct{ pin string }

func (e pinFormatError) Error() string {
	return fmt.Sprintf("pin %q is not exactly 4 digits", e.pin)
}

// IsPinFormat reports whether err is a malformed-PIN rejection.
func IsPinFormat(err error) bool {
	_, ok := err.(pinFormatError)
	return ok
}

// noSessionError signals an operation against a supervisor with no active
// session.
type noSessionError struct{}

func (noSessionError) Error() string { return "no active session" }

// ErrNoSession builds the no-active-session error.
func ErrNoSession() error { return noSessionError{} }

// IsNoSession reports whether err indicates no session is active.
func IsNoSession(err error) bool {
	_, ok := err.(noSessionError)
	return ok
}
