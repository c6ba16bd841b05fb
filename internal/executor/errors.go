package executor

import (
	"errors"
	"fmt"
)

// ErrorKind partitions execution failures into retry classes. Only the
// transient kinds (RPC, network, timeout) are ever retried; everything
// else fails the order immediately.
type ErrorKind string

const (
	KindInvalidOrder        ErrorKind = "invalid_order"
	KindNoLiquidity         ErrorKind = "no_liquidity"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindSlippageExceeded    ErrorKind = "slippage_exceeded"
	KindVenue               ErrorKind = "venue"
	KindRPC                 ErrorKind = "rpc"
	KindNetwork             ErrorKind = "network"
	KindTimeout             ErrorKind = "timeout"
)

// ExecutionError carries the failure class alongside the failing step.
type ExecutionError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is transient.
func (e *ExecutionError) Retryable() bool {
	switch e.Kind {
	case KindRPC, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}

func execErr(kind ErrorKind, op string, err error) *ExecutionError {
	return &ExecutionError{Kind: kind, Op: op, Err: err}
}

// IsRetryable classifies an arbitrary error. Errors outside the taxonomy
// are treated as permanent.
func IsRetryable(err error) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Retryable()
	}
	return false
}

// KindOf extracts the failure class, or empty for foreign errors.
func KindOf(err error) ErrorKind {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
