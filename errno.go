package hcisock

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// ErrorCode is a negated errno, the failure sentinel reported by HCI
// socket primitives.
type ErrorCode int

func (c ErrorCode) Error() string {
	if name, ok := ErrnoName(-int(c)); ok {
		return name
	}
	return fmt.Sprintf("errno %d", -int(c))
}

// UnknownCode marks an errno that is not in the table.
const UnknownCode = "UNKNOWN"

var errnoNames = [...]string{
	1:  "EPERM",
	2:  "ENOENT",
	3:  "ESRCH",
	4:  "EINTR",
	5:  "EIO",
	6:  "ENXIO",
	7:  "E2BIG",
	8:  "ENOEXEC",
	9:  "EBADF",
	10: "ECHILD",
	11: "EAGAIN",
	12: "ENOMEM",
	13: "EACCES",
	14: "EFAULT",
	15: "ENOTBLK",
	16: "EBUSY",
	17: "EEXIST",
	18: "EXDEV",
	19: "ENODEV",
	20: "ENOTDIR",
	21: "EISDIR",
	22: "EINVAL",
	23: "ENFILE",
	24: "EMFILE",
	25: "ENOTTY",
	26: "ETXTBSY",
	27: "EFBIG",
	28: "ENOSPC",
	29: "ESPIPE",
	30: "EROFS",
	31: "EMLINK",
	32: "EPIPE",
	33: "EDOM",
	34: "ERANGE",
}

// ErrnoName returns the symbolic name of errno n.
func ErrnoName(n int) (string, bool) {
	if n <= 0 || n >= len(errnoNames) {
		return "", false
	}
	return errnoNames[n], true
}

// Translate turns a failure code into an *Error whose message is
// "<context>: <NAME>". Codes outside the errno table get UnknownCode.
func Translate(context string, code ErrorCode) *Error {
	name, ok := ErrnoName(-int(code))
	if !ok {
		name = UnknownCode
	}
	return &Error{Context: context, Errno: code, Code: name}
}

// codeOf extracts the failure code carried by a transport error.
// Errors that carry no errno yield 0, which translates to UnknownCode.
func codeOf(err error) ErrorCode {
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return ErrorCode(-int(errno))
	}
	return 0
}

// translate is the single point where a transport failure becomes one of
// the sentinel kinds.
func translate(kind error, context string, err error) *Error {
	e := Translate(context, codeOf(err))
	e.Kind = kind
	e.Err = err
	return e
}
