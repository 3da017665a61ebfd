package worker

import (
	"fmt"
	"runtime/debug"

	"github.com/movein/sentiment-engine/internal/queue"
)

// DLQ error classes. Anything else the consumer settles as unknown_error.
const (
	errTypeValidation = "validation_error"
	errTypeDatabase   = "database_error"
)

// ProcessError carries a DLQ classification and the stack captured at
// the failure site. It satisfies queue.Classified.
type ProcessError struct {
	kind  string
	err   error
	stack string
}

func newProcessError(kind string, err error) *ProcessError {
	return &ProcessError{
		kind:  kind,
		err:   err,
		stack: string(debug.Stack()),
	}
}

func validationError(format string, args ...any) *ProcessError {
	return newProcessError(errTypeValidation, fmt.Errorf(format, args...))
}

func databaseError(err error) *ProcessError {
	return newProcessError(errTypeDatabase, err)
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *ProcessError) Unwrap() error { return e.err }

func (e *ProcessError) ErrorType() string { return e.kind }

func (e *ProcessError) Traceback() string { return e.stack }

var _ queue.Classified = (*ProcessError)(nil)
