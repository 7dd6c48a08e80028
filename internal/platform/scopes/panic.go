package scopes

import (
	"fmt"
	"runtime"
)

// stackBufSize bounds the stack captured with a recovered panic.
const stackBufSize = 8 << 10

// PanicError wraps a panic recovered from a supervised task, preserving the
// panic value and the stack of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(value any) *PanicError {
	buf := make([]byte, stackBufSize)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: value,
		Stack: buf[:n],
	}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
