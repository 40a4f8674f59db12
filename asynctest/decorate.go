package asynctest

import (
	"fmt"
	"runtime"
)

// stackSentinel is the literal substring tests look for to confirm an
// error was decorated rather than passed through unchanged.
const stackSentinel = "cloneThrowableAddCurrentStack"

// decoratedError carries the original error as its cause and renders a
// single frame for the caller of DecorateError, tagged with stackSentinel,
// the way cloneThrowableAddCurrentStack documents.
type decoratedError struct {
	cause error
	frame string
}

func (e *decoratedError) Error() string {
	return fmt.Sprintf("%s (%s)", e.cause.Error(), e.frame)
}

func (e *decoratedError) Unwrap() error { return e.cause }

// DecorateError produces a new error wrapping err, with a top stack frame
// whose string representation contains stackSentinel and err set as the
// cause (Unwrap returns err unchanged). If the current stack cannot be
// captured for any reason, err is returned unchanged, matching the
// documented fallback.
func DecorateError(err error) error {
	if err == nil {
		return nil
	}
	pc, file, line, ok := runtime.Caller(1)
	if !ok {
		return err
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return &decoratedError{
		cause: err,
		frame: fmt.Sprintf("%s at %s:%d [%s]", stackSentinel, file, line, name),
	}
}

// IsDecorated reports whether err (or one of its wrapped causes) carries
// the stack sentinel, i.e. was produced by DecorateError.
func IsDecorated(err error) bool {
	for err != nil {
		if _, ok := err.(*decoratedError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
