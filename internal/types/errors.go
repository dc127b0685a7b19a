package types

import "errors"

// ErrorKind is a stable machine-readable failure code surfaced to the
// transport layer. The transport decides how to render the message.
type ErrorKind string

const (
	KindRateLimitExceeded     ErrorKind = "RATE_LIMIT_EXCEEDED"
	KindInvalidPair           ErrorKind = "INVALID_PAIR"
	KindMaxOrdersExceeded     ErrorKind = "MAX_ORDERS_EXCEEDED"
	KindZeroAmount            ErrorKind = "ZERO_AMOUNT"
	KindOrderNotFound         ErrorKind = "ORDER_NOT_FOUND"
	KindNotAuthorized         ErrorKind = "NOT_AUTHORIZED"
	KindOrderAlreadyFilled    ErrorKind = "ORDER_ALREADY_FILLED"
	KindOrderAlreadyCancelled ErrorKind = "ORDER_ALREADY_CANCELLED"
	KindInsufficientBalance   ErrorKind = "INSUFFICIENT_BALANCE"
	KindSlippageExceeded      ErrorKind = "SLIPPAGE_EXCEEDED"
	KindUnknownCommand        ErrorKind = "UNKNOWN_COMMAND"
	KindBadArgument           ErrorKind = "BAD_ARGUMENT"
)

// Error is a request-level, recoverable failure tagged with a Kind. All core
// operations return either a value or exactly one of these; none are fatal.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrRateLimitExceeded     = &Error{KindRateLimitExceeded, "rate limit exceeded, slow down"}
	ErrInvalidPair           = &Error{KindInvalidPair, "unknown trading pair"}
	ErrMaxOrdersExceeded     = &Error{KindMaxOrdersExceeded, "too many pending orders"}
	ErrZeroAmount            = &Error{KindZeroAmount, "amount must be greater than zero"}
	ErrOrderNotFound         = &Error{KindOrderNotFound, "order not found"}
	ErrNotAuthorized         = &Error{KindNotAuthorized, "order belongs to another user"}
	ErrOrderAlreadyFilled    = &Error{KindOrderAlreadyFilled, "order is already filled"}
	ErrOrderAlreadyCancelled = &Error{KindOrderAlreadyCancelled, "order is already cancelled"}
	ErrInsufficientBalance   = &Error{KindInsufficientBalance, "insufficient balance"}
	ErrSlippageExceeded      = &Error{KindSlippageExceeded, "price moved beyond slippage tolerance"}
	ErrUnknownCommand        = &Error{KindUnknownCommand, "unknown command"}
	ErrBadArgument           = &Error{KindBadArgument, "bad command argument"}
)

// KindOf extracts the error kind from err, or empty string for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
