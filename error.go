package hcisock

import "github.com/pkg/errors"

var (
	// ErrDeviceEnumerationFailed is returned when the controller list can't be read.
	ErrDeviceEnumerationFailed = errors.New("device enumeration failed")

	// ErrDeviceNotFound is returned when a controller id can't be queried.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInterfaceStateChangeFailed is returned when a controller can't be brought up or down.
	ErrInterfaceStateChangeFailed = errors.New("interface state change failed")

	// ErrSocketBindFailed is returned when the raw socket can't be bound.
	ErrSocketBindFailed = errors.New("socket bind failed")

	// ErrUnknownErrorCode matches any *Error whose errno is not in the table.
	ErrUnknownErrorCode = errors.New("unknown error code")

	// ErrSessionClosed is returned by writes on a closed session.
	ErrSessionClosed = errors.New("hci session closed")
)

// Error is a translated transport failure.
type Error struct {
	Kind    error     // one of the Err* sentinels, nil for a bare Translate
	Context string    // what was being attempted
	Errno   ErrorCode // original negative code, 0 if the cause had none
	Code    string    // symbolic errno or UnknownCode
	Err     error     // transport error, if any
}

func (e *Error) Error() string {
	return e.Context + ": " + e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is e's kind, or ErrUnknownErrorCode for
// untranslatable codes.
func (e *Error) Is(target error) bool {
	switch {
	case target == nil:
		return false
	case e.Kind != nil && target == e.Kind:
		return true
	case target == ErrUnknownErrorCode:
		return e.Code == UnknownCode
	}
	return false
}
