package card

import (
	"fmt"

	"github.com/gregLibert/cardflow/pkg/iso7816"
)

// ConnectionError reports a reader that is missing, busy, or lost.
type ConnectionError struct {
	Reader string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to reader %q failed: %v", e.Reader, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SelectError reports a SELECT that the card rejected, carrying the literal
// status word for user-visible messages.
type SelectError struct {
	Target string
	SW     iso7816.StatusWord
}

func (e *SelectError) Error() string {
	return fmt.Sprintf("SELECT %s failed: %s", e.Target, e.SW.Verbose())
}

// TransmitError reports a transport-level failure during an exchange.
type TransmitError struct {
	Err error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmission failed: %v", e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}
